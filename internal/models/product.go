package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Product represents a catalog entry
type Product struct {
	ProductID   string    `json:"product_id" dynamodbav:"product_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Description string    `json:"description" dynamodbav:"description"`
	Price       float64   `json:"price" dynamodbav:"price"`
	Category    string    `json:"category" dynamodbav:"category"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Price accepts both JSON numbers and numeric strings, since clients of the
// old API sent either.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("price must be numeric: %q", s)
	}
	*p = Price(v)
	return nil
}

// ProductRequest is the payload for product create and update
type ProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       *Price `json:"price"`
	Category    string `json:"category"`
}

// Validate checks the request and returns the missing or invalid fields
func (r *ProductRequest) Validate() []string {
	var problems []string
	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		problems = append(problems, "description is required")
	}
	if strings.TrimSpace(r.Category) == "" {
		problems = append(problems, "category is required")
	}
	if r.Price == nil {
		problems = append(problems, "price is required")
	} else if *r.Price < 0 {
		problems = append(problems, "price must be non-negative")
	}
	return problems
}

// ProductPage is a single page of catalog results with offset pagination
// totals: totalPages = ceil(total/limit).
type ProductPage struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

// DeleteResponse confirms a deletion without echoing the record
type DeleteResponse struct {
	Message string `json:"message"`
}
