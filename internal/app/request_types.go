package app

// CreateCategoryRequest is the input for creating a category.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// CompleteDispatchRequest is the input for completing a dispatch order.
type CompleteDispatchRequest struct {
	VehicleNumber string `json:"vehicle_number"`
}
