package users

// Account is the server side record behind a User
type Account struct {
	User
	PasswordHash string `json:"-"` // never serialize
	Verified     bool   `json:"verified"`
}

type AccountRepo interface {
	// Create stores a new account, failing with ErrUserExists if the email is taken
	Create(account *Account) error
	Upsert(account *Account) error
	Delete(ID string) error
	GetByEmail(email string) (*Account, error)
	GetByID(ID string) (*Account, error)
	SetVerified(ID string, verified bool) error
}
