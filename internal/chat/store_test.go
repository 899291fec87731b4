package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chat-backend/internal/database"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sql":    NewSQLStore(db),
	}
}

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("x", 61)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "New Conversation"},
		{"whitespace only", "   \n\t ", "New Conversation"},
		{"short", "Hello", "Hello"},
		{"trimmed", "  Hello  ", "Hello"},
		{"exactly sixty", strings.Repeat("x", 60), strings.Repeat("x", 60)},
		{"truncated", long, strings.Repeat("x", 60) + "..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveTitle(tc.in))
		})
	}
}

func TestEnsureConversation(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			conv, err := store.EnsureConversation(ctx, "alice", "", "How do I apply?")
			require.NoError(t, err)
			assert.NotEmpty(t, conv.ID)
			assert.Equal(t, "How do I apply?", conv.Title)
			assert.Equal(t, conv.CreatedAt, conv.UpdatedAt)

			// Existing id comes back unchanged.
			again, err := store.EnsureConversation(ctx, "alice", conv.ID, "different text")
			require.NoError(t, err)
			assert.Equal(t, conv.ID, again.ID)
			assert.Equal(t, "How do I apply?", again.Title)

			// Unknown id creates a fresh conversation.
			fresh, err := store.EnsureConversation(ctx, "alice", "b0d9ad04-3c30-4a41-b03d-31e4e74a1a9b", "Second topic")
			require.NoError(t, err)
			assert.NotEqual(t, conv.ID, fresh.ID)
			assert.Equal(t, "Second topic", fresh.Title)

			// Another user cannot reach alice's conversation id.
			other, err := store.EnsureConversation(ctx, "bob", conv.ID, "Bob's question")
			require.NoError(t, err)
			assert.NotEqual(t, conv.ID, other.ID)
		})
	}
}

func TestAppendMessage(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.AppendMessage(ctx, "alice", "b0d9ad04-3c30-4a41-b03d-31e4e74a1a9b", RoleUser, "hi")
			assert.ErrorIs(t, err, ErrConversationNotFound)

			conv, err := store.EnsureConversation(ctx, "alice", "", "")
			require.NoError(t, err)
			assert.Equal(t, "New Conversation", conv.Title)

			msg, err := store.AppendMessage(ctx, "alice", conv.ID, RoleUser, "What are your opening hours?")
			require.NoError(t, err)
			assert.NotEmpty(t, msg.ID)
			assert.Equal(t, RoleUser, msg.Role)
			assert.Equal(t, conv.ID, msg.ConversationID)

			// First user message replaces the placeholder title and every
			// append strictly advances UpdatedAt.
			listed, err := store.ListConversations(ctx, "alice", Page{})
			require.NoError(t, err)
			require.Len(t, listed, 1)
			assert.Equal(t, "What are your opening hours?", listed[0].Title)
			assert.True(t, listed[0].UpdatedAt.After(conv.UpdatedAt))

			// Assistant replies and later user messages leave the title alone.
			_, err = store.AppendMessage(ctx, "alice", conv.ID, RoleAssistant, "We open at nine.")
			require.NoError(t, err)
			_, err = store.AppendMessage(ctx, "alice", conv.ID, RoleUser, "And on weekends?")
			require.NoError(t, err)

			after, err := store.ListConversations(ctx, "alice", Page{})
			require.NoError(t, err)
			require.Len(t, after, 1)
			assert.Equal(t, "What are your opening hours?", after[0].Title)
			assert.Equal(t, 3, after[0].MessageCount)
			assert.True(t, after[0].UpdatedAt.After(listed[0].UpdatedAt))
		})
	}
}

func TestListConversationsOrderAndPagination(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			first, err := store.EnsureConversation(ctx, "alice", "", "first")
			require.NoError(t, err)
			second, err := store.EnsureConversation(ctx, "alice", "", "second")
			require.NoError(t, err)
			third, err := store.EnsureConversation(ctx, "alice", "", "third")
			require.NoError(t, err)

			// Touch the first conversation so it becomes the most recent.
			_, err = store.AppendMessage(ctx, "alice", first.ID, RoleUser, "bump")
			require.NoError(t, err)

			listed, err := store.ListConversations(ctx, "alice", Page{})
			require.NoError(t, err)
			require.Len(t, listed, 3)
			assert.Equal(t, first.ID, listed[0].ID)

			// Repeated reads do not mutate state.
			again, err := store.ListConversations(ctx, "alice", Page{})
			require.NoError(t, err)
			assert.Equal(t, listed, again)

			paged, err := store.ListConversations(ctx, "alice", Page{Limit: 2})
			require.NoError(t, err)
			assert.Len(t, paged, 2)

			rest, err := store.ListConversations(ctx, "alice", Page{Limit: 2, Offset: 2})
			require.NoError(t, err)
			require.Len(t, rest, 1)

			seen := map[string]bool{paged[0].ID: true, paged[1].ID: true, rest[0].ID: true}
			assert.True(t, seen[second.ID] && seen[third.ID])

			empty, err := store.ListConversations(ctx, "nobody", Page{})
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestGetMessages(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetMessages(ctx, "alice", "b0d9ad04-3c30-4a41-b03d-31e4e74a1a9b", Page{})
			assert.ErrorIs(t, err, ErrConversationNotFound)

			conv, err := store.EnsureConversation(ctx, "alice", "", "hello")
			require.NoError(t, err)

			contents := []string{"one", "two", "three"}
			for _, content := range contents {
				_, err = store.AppendMessage(ctx, "alice", conv.ID, RoleUser, content)
				require.NoError(t, err)
			}

			messages, err := store.GetMessages(ctx, "alice", conv.ID, Page{})
			require.NoError(t, err)
			require.Len(t, messages, 3)
			for i, content := range contents {
				assert.Equal(t, content, messages[i].Content)
			}

			// Other users see nothing.
			_, err = store.GetMessages(ctx, "bob", conv.ID, Page{})
			assert.ErrorIs(t, err, ErrConversationNotFound)

			paged, err := store.GetMessages(ctx, "alice", conv.ID, Page{Limit: 2, Offset: 1})
			require.NoError(t, err)
			require.Len(t, paged, 2)
			assert.Equal(t, "two", paged[0].Content)
			assert.Equal(t, "three", paged[1].Content)
		})
	}
}

func TestRecentMessages(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			conv, err := store.EnsureConversation(ctx, "alice", "", "hello")
			require.NoError(t, err)

			for i := 0; i < 12; i++ {
				role := RoleUser
				if i%2 == 1 {
					role = RoleAssistant
				}
				_, err = store.AppendMessage(ctx, "alice", conv.ID, role, string(rune('a'+i)))
				require.NoError(t, err)
			}

			recent, err := store.RecentMessages(ctx, "alice", conv.ID, 10)
			require.NoError(t, err)
			require.Len(t, recent, 10)
			// Last 10 of 12, chronological: messages 3..12.
			assert.Equal(t, "c", recent[0].Content)
			assert.Equal(t, "l", recent[9].Content)

			all, err := store.RecentMessages(ctx, "alice", conv.ID, 0)
			require.NoError(t, err)
			assert.Len(t, all, 12)
		})
	}
}

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.DeleteConversation(ctx, "alice", "b0d9ad04-3c30-4a41-b03d-31e4e74a1a9b")
			assert.ErrorIs(t, err, ErrConversationNotFound)

			conv, err := store.EnsureConversation(ctx, "alice", "", "hello")
			require.NoError(t, err)
			_, err = store.AppendMessage(ctx, "alice", conv.ID, RoleUser, "hello")
			require.NoError(t, err)

			require.NoError(t, store.DeleteConversation(ctx, "alice", conv.ID))

			_, err = store.GetMessages(ctx, "alice", conv.ID, Page{})
			assert.ErrorIs(t, err, ErrConversationNotFound)

			listed, err := store.ListConversations(ctx, "alice", Page{})
			require.NoError(t, err)
			assert.Empty(t, listed)
		})
	}
}

func TestClearMessages(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.ClearMessages(ctx, "alice", "b0d9ad04-3c30-4a41-b03d-31e4e74a1a9b")
			assert.ErrorIs(t, err, ErrConversationNotFound)

			conv, err := store.EnsureConversation(ctx, "alice", "", "hello")
			require.NoError(t, err)
			_, err = store.AppendMessage(ctx, "alice", conv.ID, RoleUser, "hello")
			require.NoError(t, err)

			before, err := store.ListConversations(ctx, "alice", Page{})
			require.NoError(t, err)
			require.Len(t, before, 1)

			require.NoError(t, store.ClearMessages(ctx, "alice", conv.ID))

			// Messages are gone but the conversation survives with a newer
			// UpdatedAt.
			messages, err := store.GetMessages(ctx, "alice", conv.ID, Page{})
			require.NoError(t, err)
			assert.Empty(t, messages)

			after, err := store.ListConversations(ctx, "alice", Page{})
			require.NoError(t, err)
			require.Len(t, after, 1)
			assert.Equal(t, conv.ID, after[0].ID)
			assert.Equal(t, 0, after[0].MessageCount)
			assert.True(t, after[0].UpdatedAt.After(before[0].UpdatedAt))
		})
	}
}
