package admin

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/types"
)

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category_slug", func(fl validator.FieldLevel) bool {
		return enums.CategorySlug(fl.Field().String()).IsValid()
	})
	return v
}

// ProductForm is the raw admin form. ImageURL holds the image currently
// attached to the product and only changes when a new upload is accepted.
type ProductForm struct {
	Name        string `form:"name" validate:"required"`
	Description string `form:"description" validate:"required"`
	Price       string `form:"price"`
	Stock       string `form:"stock"`
	CategoryID  string `form:"categoryId" validate:"required,category_slug"`
	ImageURL    string `form:"imageUrl"`
	IsActive    bool   `form:"isActive"`
}

// FormFromProduct pre-fills the edit form.
func FormFromProduct(p types.Product) ProductForm {
	return ProductForm{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Stock:       strconv.Itoa(p.Stock),
		CategoryID:  p.CategoryID.String(),
		ImageURL:    p.ImageURL,
		IsActive:    p.IsActive,
	}
}

// Parse trims and validates the form. Price and stock that are not
// non-negative numbers are rejected, never coerced.
func (f ProductForm) Parse() (types.ProductInput, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.CategoryID = strings.TrimSpace(f.CategoryID)
	f.ImageURL = strings.TrimSpace(f.ImageURL)

	fields := map[string]string{}
	if err := formValidator.Struct(f); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields[fieldName(fe.Field())] = fieldMessage(fe)
			}
		} else {
			return types.ProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product")
		}
	}

	price, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(f.Price, ",", ".")))
	switch {
	case err != nil:
		fields["price"] = "must be a number"
	case price.IsNegative():
		fields["price"] = "must be zero or more"
	}

	stock, err := strconv.Atoi(strings.TrimSpace(f.Stock))
	switch {
	case err != nil:
		fields["stock"] = "must be a whole number"
	case stock < 0:
		fields["stock"] = "must be zero or more"
	}

	if len(fields) > 0 {
		return types.ProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "please correct the highlighted fields").WithDetails(fields)
	}
	return types.ProductInput{
		Name:        f.Name,
		Description: f.Description,
		Price:       price,
		Stock:       stock,
		ImageURL:    f.ImageURL,
		CategoryID:  types.CategoryRef(f.CategoryID),
		IsActive:    f.IsActive,
	}, nil
}

// AttachImage validates upload against policy and, only when accepted,
// replaces the form image with its data URI.
func (f *ProductForm) AttachImage(policy ImagePolicy, upload ImageUpload) error {
	uri, err := policy.Accept(upload)
	if err != nil {
		return err
	}
	f.ImageURL = uri
	return nil
}

func fieldName(field string) string {
	switch field {
	case "CategoryID":
		return "categoryId"
	case "ImageURL":
		return "imageUrl"
	default:
		if field == "" {
			return field
		}
		return strings.ToLower(field[:1]) + field[1:]
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "category_slug":
		return "must be a category from the list"
	default:
		return "is invalid"
	}
}
