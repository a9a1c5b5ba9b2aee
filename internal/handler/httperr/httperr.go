package httperr

import (
	"net/http"

	"kicks-exchange/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

const retryAfterSeconds = "1"

type RetryDetail struct {
	Retryable bool `json:"retryable"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Message = msg
	resp.Detail = detail

	abort(c, err, resp)
}

// AbortWithDomainError maps an engine error to its HTTP status and exposes
// the error code and whether a retry can succeed.
func AbortWithDomainError(c *gin.Context, err error) {
	if err == nil {
		panic("AbortWithDomainError: err cannot be nil")
	}

	if errs.Classify(err) == errs.ClassUnavailable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	abort(c, err, DomainResponse(err))
}

// DomainResponse builds the error body for an engine error.
func DomainResponse(err error) Response {
	resp := Response{Status: StatusFor(err)}
	resp.Error.Code = errs.Code(err)
	resp.Error.Message = messageFor(err)
	resp.Detail = RetryDetail{Retryable: errs.Retryable(err)}
	return resp
}

func abort(c *gin.Context, err error, resp Response) {
	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(resp.Status, resp)
}

func StatusFor(err error) int {
	switch errs.Classify(err) {
	case errs.ClassInvalid:
		return http.StatusUnprocessableEntity
	case errs.ClassNotFound:
		return http.StatusNotFound
	case errs.ClassForbidden:
		return http.StatusForbidden
	case errs.ClassConflict:
		return http.StatusConflict
	case errs.ClassUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch errs.Code(err) {
	case "InvalidOffer":
		return "Invalid offer"
	case "InvalidPaymentMethod":
		return "Invalid payment method"
	case "SizeVariantNotFound":
		return "Size variant not found"
	case "OfferNotFound":
		return "Offer not found"
	case "TransactionNotFound":
		return "Transaction not found"
	case "OfferNotOpen":
		return "Offer is no longer open"
	case "NotOwner":
		return "Not allowed for this offer"
	case "SelfMatchNotAllowed":
		return "Cannot trade against your own offer"
	case "SettlementPersistenceFailure":
		return "Settlement could not be recorded"
	default:
		return "Internal server error"
	}
}
