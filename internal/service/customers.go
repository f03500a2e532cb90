package service

import (
	"strings"

	"github.com/wb-go/wbf/ginext"

	"certify/internal/dto"
)

// SyncCustomer records the signed-in organizer if this email has not been seen before.
func (s *service) SyncCustomer(ctx *ginext.Context) {
	var req dto.SyncCustomerRequest
	if !s.bindJSON(ctx, &req) {
		return
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = defaultCustomerName
	}
	customer, created, err := s.repo.EnsureCustomer(ctx.Request.Context(), strings.TrimSpace(req.Email), name)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to sync customer")
		dto.InternalServerError(ctx)
		return
	}

	resp := dto.CustomerResponse{
		ID:           customer.ID,
		CustomerName: customer.Name,
		Email:        customer.Email,
		Created:      created,
		CreatedAt:    customer.CreatedAt,
	}
	if created {
		s.log.Info().Str("customer_id", customer.ID).Msg("customer synced")
		dto.SuccessCreatedResponse(ctx, resp)
		return
	}
	dto.SuccessResponse(ctx, resp)
}
