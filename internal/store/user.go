package store

// User is a principal's account (identity collaborator, out of core scope
// per spec.md §6, but real enough for the login/rate-limit invariant to
// exercise against).
type User struct {
	Base
	StudentID    string `gorm:"uniqueIndex;not null"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
	IsActive     bool   `gorm:"not null;default:true"`
}

func (User) TableName() string { return "users" }
