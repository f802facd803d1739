package types

// CartResponse wraps every successful cart API payload under a "data" key so
// storefront clients unwrap one shape regardless of endpoint.
type CartResponse struct {
	Data any `json:"data"`
}

type CartFault struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type CartFaultResponse struct {
	Error CartFault `json:"error"`
}
