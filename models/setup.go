package models

// Account 서버 소유자 계정
type Account struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Email        string `json:"email,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// SetupRequest 초기 설정 요청
type SetupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// SetupStatus 초기 설정 상태
type SetupStatus struct {
	Completed    bool `json:"completed"`
	ProductCount int  `json:"product_count"`
}

// SaveProductsRequest 제품 트리 저장 요청
type SaveProductsRequest struct {
	Products []Product `json:"products"`
}

// SaveProductsResult 제품 트리 저장 결과
type SaveProductsResult struct {
	Saved int      `json:"saved"`
	IDs   []string `json:"ids"`
}
