package dto

import "github.com/shopspring/decimal"

type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=80"`
	Password string `json:"password" validate:"required,max=72"` // limite do bcrypt
}

func (r *CredentialsRequest) Validate() error { return validateStruct(r) }

// AmountRequest aceita número ou string JSON ("10.50")
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Validate não checa Amount: a regra (positivo, centavos, abaixo de 10^18) é
// ledger.ValidateAmount, aplicada também a stakes e pagamentos que não passam
// por este payload. Valor ausente chega lá como zero e vira ErrInvalidAmount.
func (r *AmountRequest) Validate() error { return nil }

type PlaceBetRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Prediction string          `json:"prediction" validate:"required,max=120"`
}

func (r *PlaceBetRequest) Validate() error { return validateStruct(r) }

type SettleRequest struct {
	Result string `json:"result" validate:"required"` // "Win" | "Lose"
}

func (r *SettleRequest) Validate() error { return validateStruct(r) }
