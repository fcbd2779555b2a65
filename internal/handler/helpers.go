package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"economat/internal/apierror"
	"economat/internal/dto"
	"economat/internal/infra"
	"economat/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Multipart field names. "bon" is accepted for older clients.
const (
	payloadField      = "payload"
	voucherField      = "voucher"
	voucherFieldAlias = "bon"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery binds query parameters and validates them.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation("", fields))
	return false
}

// fieldPath drops the top-level struct name: "SortieRequest.items[0].product_id" → "items[0].product_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// bindPayload reads a request that may carry a voucher image. Multipart
// requests hold the JSON body in the "payload" field and the image in
// "voucher"; anything else is read as plain JSON without an image.
func bindPayload(c *gin.Context, req interface{}) (*dto.ImageUpload, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return nil, bindAndValidate(c, req)
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, infra.MaxImageSize+1<<20)
	raw := c.PostForm(payloadField)
	if raw == "" {
		c.JSON(http.StatusBadRequest, apierror.New("missing "+payloadField+" field"))
		return nil, false
	}
	if err := json.Unmarshal([]byte(raw), req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return nil, false
	}
	if !validateStruct(c, req) {
		return nil, false
	}

	fh, err := c.FormFile(voucherField)
	if errors.Is(err, http.ErrMissingFile) {
		fh, err = c.FormFile(voucherFieldAlias)
	}
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid voucher upload: "+err.Error()))
		return nil, false
	}

	img, err := readUpload(fh)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(err.Error(), map[string]string{voucherField: err.Error()}))
		return nil, false
	}
	return img, true
}

func readUpload(fh *multipart.FileHeader) (*dto.ImageUpload, error) {
	if fh.Size > infra.MaxImageSize {
		return nil, errors.New("voucher image exceeds 5 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, infra.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	img := &dto.ImageUpload{Filename: fh.Filename, ContentType: contentType, Data: data}
	if err := infra.CheckImage(*img); err != nil {
		return nil, err
	}
	return img, nil
}

// paramID parses a uuid path parameter, writing 400 when it is malformed.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// respondError writes the HTTP form of a service error.
func respondError(c *gin.Context, err error) {
	status := apierror.Status(err)
	var e *apierror.Error
	if !errors.As(err, &e) || status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
		return
	}

	switch {
	case errors.Is(e, apierror.ErrInsufficientStock), errors.Is(e, apierror.ErrConflict) && e.ProductID != uuid.Nil:
		c.JSON(status, apierror.StockError{
			Detail:    e.Message,
			ProductID: e.ProductID.String(),
			Requested: e.Requested,
			Available: e.Available,
		})
	case errors.Is(e, apierror.ErrValidation):
		c.JSON(status, apierror.NewValidation(e.Message, e.Fields))
	default:
		c.JSON(status, apierror.New(e.Message))
	}
}
