package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"miniplm/models"
	"miniplm/utils"
)

var (
	// ErrInvalidProduct는 저장하려는 제품 트리가 불변식을 위반할 때 반환됩니다.
	ErrInvalidProduct = errors.New("invalid product tree")
	// ErrProductNotFound는 제품이 존재하지 않을 때 반환됩니다.
	ErrProductNotFound = errors.New("product not found")
)

// ProductService는 제품 트리 저장소에 대한 비즈니스 로직을 정의합니다.
type ProductService interface {
	SaveAll(ctx context.Context, products []models.Product) ([]string, error)
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (models.Product, error)
	Count(ctx context.Context) (int, error)
	ReferencedNames(ctx context.Context) (map[string]struct{}, error)
}

type productService struct {
	db SQLExecutor
}

// NewProductService는 ProductService 구현체를 생성합니다.
func NewProductService(db SQLExecutor) ProductService {
	return &productService{db: db}
}

// SaveAll은 저장된 제품 트리 전체를 products로 교체합니다. 순서는 position으로 보존되고,
// 인라인 페이로드는 저장 전에 제거됩니다. id가 없는 제품에는 새 id가 부여됩니다.
func (s *productService) SaveAll(ctx context.Context, products []models.Product) ([]string, error) {
	stripped := models.StripInlineBlobs(products)
	ids := make([]string, len(stripped))
	seen := make(map[string]struct{}, len(stripped))

	for i := range stripped {
		p := &stripped[i]
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("%w: product %d has no name", ErrInvalidProduct, i)
		}
		if err := validateTree(*p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidProduct, p.Name, err)
		}
		if p.ID == "" {
			id, err := utils.GenerateID("prod")
			if err != nil {
				return nil, err
			}
			p.ID = id
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %s", ErrInvalidProduct, p.ID)
		}
		seen[p.ID] = struct{}{}
		ids[i] = p.ID
	}

	now := utils.FormatDateTimeForDB(utils.Now())
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
			return err
		}
		for i, p := range stripped {
			tree, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode product %s: %w", p.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO products (id, name, position, tree, updated_at)
				VALUES (?, ?, ?, ?, ?)`,
				p.ID, p.Name, i, string(tree), now,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func validateTree(p models.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for label, files := range p.FilesByStage {
		for _, f := range files {
			if err := f.Validate(); err != nil {
				return fmt.Errorf("stage %s: %w", label, err)
			}
		}
	}
	return nil
}

func (s *productService) List(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, tree FROM products ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var id, tree string
		if err := rows.Scan(&id, &tree); err != nil {
			return nil, err
		}
		var p models.Product
		if err := json.Unmarshal([]byte(tree), &p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", id, err)
		}
		p.ID = id
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *productService) Get(ctx context.Context, id string) (models.Product, error) {
	var tree string
	err := s.db.QueryRowContext(ctx, "SELECT tree FROM products WHERE id = ?", id).Scan(&tree)
	if err == sql.ErrNoRows {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, err
	}

	var p models.Product
	if err := json.Unmarshal([]byte(tree), &p); err != nil {
		return models.Product{}, fmt.Errorf("decode product %s: %w", id, err)
	}
	p.ID = id
	return p, nil
}

func (s *productService) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	return count, err
}

// ReferencedNames는 저장된 모든 리비전이 참조하는 파일 이름 집합을 반환합니다.
func (s *productService) ReferencedNames(ctx context.Context) (map[string]struct{}, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{})
	for _, p := range products {
		for _, files := range p.FilesByStage {
			for _, f := range files {
				for _, r := range f.Revisions {
					names[r.Name] = struct{}{}
				}
			}
		}
	}
	return names, nil
}
