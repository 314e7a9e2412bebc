package api

type LoginRequest struct {
	Login     string `json:"login" form:"login"`
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
}

type LoginResponse struct {
	Status

	Token string `json:"token,omitempty"`
}

type JoinResponse struct {
	Status
}
