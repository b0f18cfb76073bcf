package carrier

import (
	"context"
	"net/http"
	"time"
)

type Order struct {
	OrderNumber  string      `json:"order_number"`
	Status       string      `json:"status"`
	TotalAmount  float64     `json:"total_amount"`
	Currency     string      `json:"currency"`
	OrderDate    time.Time   `json:"order_date"`
	DeliveryDate *time.Time  `json:"delivery_date"`
	Items        []OrderItem `json:"items"`
}

type OrderItem struct {
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type OrderList struct {
	Orders []Order `json:"orders"`
}

type CreateOrderRequest struct {
	Items []OrderItem `json:"items"`
}

type Product struct {
	ProductCode string  `json:"product_code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
}

type ProductList struct {
	Products []Product `json:"products"`
}

func (c *Client) GetOrders(ctx context.Context) (*OrderList, error) {
	var result OrderList
	if err := c.request(ctx, http.MethodGet, "/management-api/v1/orders", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var result Order
	if err := c.request(ctx, http.MethodGet, "/management-api/v1/orders/"+orderID, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CreateOrder(ctx context.Context, order CreateOrderRequest) (*Order, error) {
	var result Order
	if err := c.request(ctx, http.MethodPost, "/management-api/v1/orders", nil, order, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetProducts(ctx context.Context) (*ProductList, error) {
	var result ProductList
	if err := c.request(ctx, http.MethodGet, "/management-api/v1/products", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var result Product
	if err := c.request(ctx, http.MethodGet, "/management-api/v1/products/"+productID, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
