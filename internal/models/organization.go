package models

type Organization struct {
	ID                  uint64  `gorm:"primarykey" json:"id"`
	Name                string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	FeePaid             bool    `gorm:"not null;default:false" json:"fee_paid"`
	BankName            *string `gorm:"type:varchar(255)" json:"bank_name"`
	BankAccountNumber   *string `gorm:"type:varchar(255)" json:"bank_account_number"`
	PaymentInstructions *string `gorm:"type:text" json:"payment_instructions"`

	// Relations
	Users          []User                   `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
	EventDelegates []EventDelegate          `gorm:"foreignKey:OrganizationID" json:"-"`
	Invitations    []OrganizationInvitation `gorm:"foreignKey:OrganizationID" json:"-"`
}

// SiteSettings is the singleton row holding federation-wide defaults shown
// to organizations with unpaid fees.
type SiteSettings struct {
	ID                  uint64  `gorm:"primarykey" json:"id"`
	BankName            *string `gorm:"type:varchar(255)" json:"bank_name"`
	BankAccountNumber   *string `gorm:"type:varchar(255)" json:"bank_account_number"`
	PaymentInstructions *string `gorm:"type:text" json:"payment_instructions"`
}
