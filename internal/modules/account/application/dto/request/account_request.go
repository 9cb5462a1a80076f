package request

type SaveAccountRequest struct {
	UserId      string `json:"user_id"`
	PhoneNumber string `json:"phone_number"`
	Jid         string `json:"jid"`
}

type UpdateStatusRequest struct {
	UserId string `json:"user_id"`
	Jid    string `json:"jid"`
	Status string `json:"status"`
}

type GetAccountRequest struct {
	PhoneNumber string `form:"phone_number" json:"phone_number"`
}
