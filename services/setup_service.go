package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"miniplm/logger"
	"miniplm/models"
	"miniplm/utils"
)

var (
	// ErrSetupCompleted는 소유자 계정이 이미 존재할 때 반환됩니다.
	ErrSetupCompleted = errors.New("setup already completed")
	// ErrInvalidSetup는 설정 요청 값이 유효하지 않을 때 반환됩니다.
	ErrInvalidSetup = errors.New("invalid setup request")
)

const minPasswordLength = 8

// SetupService는 서버 최초 설정을 담당합니다.
type SetupService interface {
	Status(ctx context.Context) (models.SetupStatus, error)
	Run(ctx context.Context, req models.SetupRequest) (models.Account, error)
	OwnerID(ctx context.Context) (string, error)
}

type setupService struct {
	db       SQLExecutor
	products ProductService
}

// NewSetupService는 SetupService 구현체를 생성합니다.
func NewSetupService(db SQLExecutor, products ProductService) SetupService {
	return &setupService{db: db, products: products}
}

func (s *setupService) Status(ctx context.Context) (models.SetupStatus, error) {
	var accounts int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&accounts); err != nil {
		return models.SetupStatus{}, err
	}
	count, err := s.products.Count(ctx)
	if err != nil {
		return models.SetupStatus{}, err
	}
	return models.SetupStatus{Completed: accounts > 0, ProductCount: count}, nil
}

// Run은 소유자 계정을 만들고, 저장된 제품이 없으면 기본 제품을 생성합니다.
func (s *setupService) Run(ctx context.Context, req models.SetupRequest) (models.Account, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return models.Account{}, fmt.Errorf("%w: username is required", ErrInvalidSetup)
	}
	if len(req.Password) < minPasswordLength {
		return models.Account{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSetup, minPasswordLength)
	}

	status, err := s.Status(ctx)
	if err != nil {
		return models.Account{}, err
	}
	if status.Completed {
		return models.Account{}, ErrSetupCompleted
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := utils.GenerateID("acct")
	if err != nil {
		return models.Account{}, err
	}

	account := models.Account{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		Email:        strings.TrimSpace(req.Email),
		CreatedAt:    utils.FormatDateTimeForDB(utils.Now()),
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (id, username, password, email, created_at) VALUES (?, ?, ?, ?, ?)",
		account.ID, account.Username, account.PasswordHash, account.Email, account.CreatedAt,
	); err != nil {
		return models.Account{}, fmt.Errorf("create owner account: %w", err)
	}

	if status.ProductCount == 0 {
		if _, err := s.products.SaveAll(ctx, []models.Product{models.NewProduct(models.DefaultProductName)}); err != nil {
			return models.Account{}, fmt.Errorf("create sample product: %w", err)
		}
	}

	logger.WithFields(map[string]interface{}{
		"account_id": account.ID,
		"username":   account.Username,
	}).Info("Setup completed")
	return account, nil
}

// OwnerID는 소유자 계정 ID를 반환합니다. 설정 전이면 빈 문자열입니다.
func (s *setupService) OwnerID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM accounts ORDER BY created_at ASC LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}
