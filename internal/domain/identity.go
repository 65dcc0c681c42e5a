package domain

// Session is the identity stamped onto listings and checked by mutation
// gates. Anonymous sessions carry a minted id; token sessions derive their id
// from a pre-provisioned credential.
type Session struct {
	ID        string `json:"userId"`
	Anonymous bool   `json:"anonymous"`
}

// Valid reports whether the session carries a usable identity. Components
// must treat an invalid session as a transient state: reads proceed,
// mutations are blocked.
func (s Session) Valid() bool {
	return s.ID != ""
}
