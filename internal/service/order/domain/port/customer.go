package port

import "context"

// Customer 是客户服务返回的客户记录
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	CPF   string `json:"cpf,omitempty"`
}

// CustomerGateway 是客户服务的出站端口。
type CustomerGateway interface {
	// FetchCustomer 查询客户。客户不存在与服务不可达都返回 (nil, false)。
	FetchCustomer(ctx context.Context, id int64) (*Customer, bool)
}
