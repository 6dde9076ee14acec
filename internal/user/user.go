package user

// User is the persisted user record. The JSON shape is the API contract.
type User struct {
	ID        int     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string  `gorm:"not null" json:"email"`
	FirstName string  `gorm:"not null" json:"firstName"`
	LastName  string  `gorm:"not null" json:"lastName"`
	Social    *Social `gorm:"serializer:json;type:jsonb" json:"social"`
}

// Social holds optional profile links. Every link must be an absolute URL.
type Social struct {
	Facebook *string `json:"facebook,omitempty" create:"omitempty,url" update:"omitempty,url"`
	Twitter  *string `json:"twitter,omitempty" create:"omitempty,url" update:"omitempty,url"`
	Github   *string `json:"github,omitempty" create:"omitempty,url" update:"omitempty,url"`
	Website  *string `json:"website,omitempty" create:"omitempty,url" update:"omitempty,url"`
}

// Payload is the request body for create and update. Nil fields were not sent
// or were rejected while decoding. The create and update tags are the two
// modes of the same schema.
type Payload struct {
	Email     *string `json:"email" create:"required,email,tld" update:"omitempty,email,tld"`
	FirstName *string `json:"firstName" create:"required,min=1" update:"omitempty,min=1"`
	LastName  *string `json:"lastName" create:"required,min=1" update:"omitempty,min=1"`
	Social    *Social `json:"social"`

	// rejected maps a field path to the message for a value of the wrong
	// JSON type, null included.
	rejected map[string]string
}

// User builds a new record from a payload validated in create mode.
func (p Payload) User() User {
	var u User
	p.ApplyTo(&u)
	return u
}

// ApplyTo copies every provided field onto u. A provided social object
// replaces the stored one as a whole.
func (p Payload) ApplyTo(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Social != nil {
		u.Social = p.Social.clone()
	}
}

func (s *Social) clone() *Social {
	if s == nil {
		return nil
	}
	return &Social{
		Facebook: cloneString(s.Facebook),
		Twitter:  cloneString(s.Twitter),
		Github:   cloneString(s.Github),
		Website:  cloneString(s.Website),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUser(u User) User {
	u.Social = u.Social.clone()
	return u
}
