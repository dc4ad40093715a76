package handlers

const (
	ErrInvalidFormData     = "Invalid form data"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrNotFound            = "Not found"
	ErrTooManyRequests     = "Too many requests. Please try again later."
	ErrInternalServerError = "Internal server error"
)

// Child manager messages
const (
	MsgSecurityCheckFailed     = "Security check failed."
	MsgInvalidChildID          = "Invalid child ID."
	MsgNoEditPermission        = "You do not have permission to edit this child."
	MsgLoginToManage           = "Please login to manage your children."
	MsgNoDeletePermission      = "You do not have permission to delete children."
	MsgNoDeleteChildPermission = "You do not have permission to delete this child."
	MsgDeleteFailed            = "Failed to delete child."
	MsgChildDeleted            = "Child deleted successfully."
	MsgChildAdded              = "Child added successfully."
	MsgChildUpdated            = "Child updated successfully."
	MsgGenericError            = "An error occurred. Please try again."
)

// Form field names shared with the templates
const (
	FieldChildManagerNonce = "wc_child_manager_nonce"
	FieldAjaxNonce         = "nonce"
	FieldCheckoutNonce     = "woocommerce-process-checkout-nonce"
)

const (
	myChildrenPath = "/my-children"
	loginPath      = "/login"
)
