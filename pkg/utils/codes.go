package utils

// ResponseCode business response code
type ResponseCode int

// Response codes
const (
	CodeSuccess ResponseCode = 0

	// Parameter errors (1xxx)
	CodeInvalidParam ResponseCode = 1001
	CodeUnauthorized ResponseCode = 1002
	CodeForbidden    ResponseCode = 1003

	// User related (2xxx)
	CodeUserNotFound  ResponseCode = 2001
	CodeUserExists    ResponseCode = 2002
	CodeWrongPassword ResponseCode = 2003

	// Catalog related (3xxx)
	CodeProductNotFound  ResponseCode = 3001
	CodeCategoryNotFound ResponseCode = 3002
	CodeInvalidDiscount  ResponseCode = 3003

	// Order related (4xxx)
	CodeOrderNotFound ResponseCode = 4001
	CodeOrderExists   ResponseCode = 4002
	CodePaymentFailed ResponseCode = 4003
	CodeRefundFailed  ResponseCode = 4004

	// Chat related (5xxx)
	CodeRoomNotFound ResponseCode = 5001
	CodeAIFailed     ResponseCode = 5002

	// System errors (9xxx)
	CodeInternalError ResponseCode = 9001
	CodeServiceError  ResponseCode = 9002
	CodeDatabaseError ResponseCode = 9003
	CodeRedisError    ResponseCode = 9004
	CodeRateLimit     ResponseCode = 9005
)
