package apihttp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"watchwise/discoveryservice/internal/domain"
	"watchwise/discoveryservice/internal/traits"
)

const (
	maxBodyBytes       = 1 << 20
	defaultSliderValue = float64(traits.DefaultSliderValue)
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// seedID accepts a JSON number or a numeric string. Anything else decodes
// to zero and fails validation.
type seedID int

func (id *seedID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = 0
		return nil
	}
	raw = strings.TrimSpace(strings.Trim(raw, `"`))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value != math.Trunc(value) || value > math.MaxInt32 || value < math.MinInt32 {
		*id = 0
		return nil
	}
	*id = seedID(value)
	return nil
}

type sliderBody struct {
	ID    string   `json:"id"`
	Value *float64 `json:"value"`
}

type recommendBody struct {
	SeedID   seedID      `json:"seedId" validate:"gt=0"`
	SeedType string      `json:"seedType" validate:"omitempty,oneof=movie tv"`
	Boosts   []string    `json:"boosts" validate:"omitempty,dive,trait"`
	Slider   *sliderBody `json:"slider"`
}

func (b recommendBody) toRequest() (domain.RecommendRequest, error) {
	mediaType, err := domain.ParseMediaType(b.SeedType)
	if err != nil {
		return domain.RecommendRequest{}, err
	}
	req := domain.RecommendRequest{
		SeedID:   int(b.SeedID),
		SeedType: mediaType,
		Tuning:   domain.TuningState{Boosts: b.Boosts},
	}
	// A slider without an id is ignored.
	if b.Slider != nil && strings.TrimSpace(b.Slider.ID) != "" {
		value := defaultSliderValue
		if b.Slider.Value != nil {
			value = *b.Slider.Value
		}
		req.Tuning.Slider = &domain.SliderSetting{ID: b.Slider.ID, Value: value}
	}
	return req, nil
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("trait", func(fl validator.FieldLevel) bool {
			return traits.Valid(fl.Field().String())
		})
	})
	return validate
}

// validationError maps the first failing field onto the domain input error
// a caller would expect for it.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "trait":
		return fmt.Errorf("%w: %v", domain.ErrUnknownTrait, fe.Value())
	case "oneof":
		return domain.ErrInvalidMediaType
	case "gt":
		return domain.ErrInvalidSeedID
	default:
		return fmt.Errorf("%s failed %q validation", fe.Namespace(), fe.Tag())
	}
}

func decodeRecommendBody(r *http.Request) (domain.RecommendRequest, error) {
	var body recommendBody
	if err := decodeJSONBody(r, &body); err != nil {
		return domain.RecommendRequest{}, err
	}
	if err := getValidator().Struct(body); err != nil {
		return domain.RecommendRequest{}, validationError(err)
	}
	return body.toRequest()
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
