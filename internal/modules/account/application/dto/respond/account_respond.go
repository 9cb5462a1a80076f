package respond

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type AccountResult struct {
	Status        string `json:"status"`
	Found         bool   `json:"found"`
	Created       bool   `json:"created"`
	UserId        string `json:"user_id"`
	PhoneNumber   string `json:"phone_number"`
	Jid           string `json:"jid"`
	AccountStatus string `json:"account_status"`
	Error         string `json:"error"`
	Message       string `json:"message"`
}
