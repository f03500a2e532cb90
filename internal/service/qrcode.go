package service

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"certify/internal/dto"
	"certify/internal/qrcode"
	"certify/pkg/slug"
)

// GenerateSingleQRCode renders one QR code locally, stores it and returns its URL.
func (s *service) GenerateSingleQRCode(ctx *ginext.Context) {
	var req dto.SingleQRCodeRequest
	if !s.bindJSON(ctx, &req) {
		return
	}

	png, err := s.generator.PNG(req.Text)
	if errors.Is(err, qrcode.ErrTextTooLong) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Text is too long for a QR code")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to render qr code")
		dto.InternalServerError(ctx)
		return
	}

	key := slug.QRStem(req.Text) + "_" + strconv.FormatInt(s.now().UnixMilli(), 10) + ".png"
	url, err := s.store.Put(ctx.Request.Context(), key, "image/png", png)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to store qr code")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("key", key).Msg("single qr code generated")
	ctx.JSON(http.StatusOK, dto.SingleQRCodeResponse{Success: true, URL: url})
}
