package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a code/message pair derived from a low-level error.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns storage and network errors into a client-safe code and
// message. context names the operation ("create address", "load order").
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong"}
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}

	switch {
	case strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "unique constraint"):
		return parseDuplicateKeyError(errStr)
	case strings.Contains(errStr, "foreign key constraint"):
		if strings.Contains(errStr, "still referenced") {
			return ErrorInfo{Code: ResourceConflict, Message: "The record is still in use and cannot be deleted"}
		}
		return ErrorInfo{Code: ResourceNotFound, Message: "A referenced record does not exist"}
	case strings.Contains(errStr, "violates not-null constraint"), strings.Contains(errStr, "not null constraint"):
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	case strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "no such host"),
		strings.Contains(errStr, "timeout"):
		return ErrorInfo{Code: InternalExternalAPI, Message: "An upstream service is unavailable. Please try again later"}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	switch {
	case strings.Contains(errStr, "provider_session_id"):
		return ErrorInfo{Code: ResourceConflict, Message: "This checkout session is already attached to an order"}
	case strings.Contains(errStr, "invoice_number"):
		return ErrorInfo{Code: ResourceConflict, Message: "Invoice number collision, please retry"}
	case strings.Contains(errStr, "token"):
		return ErrorInfo{Code: SessionUnavailable, Message: "Could not allocate a session, please retry"}
	case strings.Contains(errStr, "cart_items"), strings.Contains(errStr, "idx_cart_session_product_plan"):
		return ErrorInfo{Code: ResourceConflict, Message: "The item is already in the cart"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "The record already exists"}
}

func notFoundMessage(context string) string {
	c := strings.ToLower(context)
	switch {
	case strings.Contains(c, "product"):
		return "Product not found"
	case strings.Contains(c, "address"):
		return "Address not found"
	case strings.Contains(c, "payment"):
		return "Payment method not found"
	case strings.Contains(c, "order"):
		return "Order not found"
	case strings.Contains(c, "user"):
		return "User not found"
	}
	return "The requested record was not found"
}

func defaultMessage(context string) string {
	c := strings.ToLower(context)
	switch {
	case strings.Contains(c, "create"):
		return "Could not create the record. Please try again later"
	case strings.Contains(c, "update"):
		return "Could not update the record. Please try again later"
	case strings.Contains(c, "delete"):
		return "Could not delete the record. Please try again later"
	}
	return "Something went wrong. Please try again later"
}

// ParseAndRespond parses err and writes it with statusCode.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
