package dto

// Credentials This is necessary to prevent any Mass Assignment Vulnerability attack
type Credentials struct {
	Password string `json:"password"`
}
