package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"licitacoes/models"
)

// ClientService manages the client companies that own client-scoped
// documents and participate in bids.
type ClientService struct {
	store StorageInterface
}

func NewClientService(store StorageInterface) *ClientService {
	return &ClientService{store: store}
}

func (s *ClientService) Create(ctx context.Context, corporateName, cnpj string) (*models.Client, error) {
	corporateName = strings.TrimSpace(corporateName)
	if corporateName == "" {
		return nil, &models.ValidationError{Reason: "corporateName is required"}
	}
	cnpj = digitsOnly(cnpj)
	if len(cnpj) != 14 {
		return nil, &models.ValidationError{Reason: "cnpj must have 14 digits"}
	}

	client := &models.Client{
		ID:            uuid.New().String(),
		CorporateName: corporateName,
		CNPJ:          cnpj,
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	return s.store.GetClient(ctx, id)
}

func (s *ClientService) List(ctx context.Context, limit, offset int) ([]models.Client, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListClients(ctx, limit, offset)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
