package models

type User struct {
	BaseModel
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Role         UserRole   `gorm:"type:varchar(20);not null"`
	Status       UserStatus `gorm:"type:varchar(20);default:'pending'"`

	// Relations
	WorkerProfile        *WorkerProfile        `gorm:"foreignKey:UserID"`
	EstablishmentProfile *EstablishmentProfile `gorm:"foreignKey:UserID"`
	Subscriptions        []Subscription        `gorm:"foreignKey:UserID"`
	CreditBalance        *CreditBalance        `gorm:"foreignKey:UserID"`
}
