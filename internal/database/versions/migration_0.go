package versions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Conversation struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId string    `gorm:"index;not null"`

	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []Message `gorm:"foreignKey:ConversationId;constraint:OnDelete:CASCADE"`
}

type Message struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID `gorm:"type:uuid;index;not null"`

	Role      string `gorm:"size:20;not null"`
	Content   string
	Timestamp time.Time
}

type User struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time
}

type Faq struct {
	Id       uint   `gorm:"primaryKey"`
	Category string `gorm:"index"`
	Question string `gorm:"not null"`
	Answer   string `gorm:"not null"`
}

func Migration(txn *gorm.DB) error {
	return txn.AutoMigrate(&Conversation{}, &Message{}, &User{}, &Faq{})
}
