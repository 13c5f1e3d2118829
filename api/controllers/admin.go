package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/api/views"
	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const imageField = "image"

// AdminSaveProduct creates a product, or updates the one named by the
// productId route parameter. The refreshed list is rendered straight from
// the refetch that follows the write.
func AdminSaveProduct(images admin.ImagePolicy, renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()

		var id int64
		if chi.URLParam(r, "productId") != "" {
			parsed, err := validators.ParseID(r, "productId")
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			id = parsed
		}

		var form admin.ProductForm
		if err := validators.DecodeForm(r, &form); err != nil {
			renderAdminForm(w, r, client, images, renderer, logg, form, id, err)
			return
		}
		if err := attachUpload(r, &form, images); err != nil {
			renderAdminForm(w, r, client, images, renderer, logg, form, id, err)
			return
		}
		input, err := form.Parse()
		if err != nil {
			renderAdminForm(w, r, client, images, renderer, logg, form, id, err)
			return
		}

		_, overview, err := client.Admin.Save(ctx, id, input)
		if err != nil {
			renderAdminForm(w, r, client, images, renderer, logg, form, id, err)
			return
		}

		data := layout(ctx, client, w, enums.PageAdmin, views.AdminContent{
			Overview: overview,
			Form:     admin.ProductForm{IsActive: true},
			MaxImage: imageCeiling(images),
		})
		data.Notice = "Produit enregistré"
		render(w, r, renderer, logg, http.StatusOK, enums.PageAdmin, data)
	}
}

func AdminDeleteProduct(images admin.ImagePolicy, renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()

		id, err := validators.ParseID(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		overview, err := client.Admin.Delete(ctx, id)
		if err != nil {
			renderAdminForm(w, r, client, images, renderer, logg, admin.ProductForm{IsActive: true}, 0, err)
			return
		}

		data := layout(ctx, client, w, enums.PageAdmin, views.AdminContent{
			Overview: overview,
			Form:     admin.ProductForm{IsActive: true},
			MaxImage: imageCeiling(images),
		})
		data.Notice = "Produit supprimé"
		render(w, r, renderer, logg, http.StatusOK, enums.PageAdmin, data)
	}
}

// attachUpload replaces the form image when a file was selected. An absent
// file keeps the current image.
func attachUpload(r *http.Request, form *admin.ProductForm, images admin.ImagePolicy) error {
	file, header, err := r.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()
	if header.Size == 0 {
		return nil
	}
	return form.AttachImage(images, admin.ImageUpload{
		Filename:     header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Size:         header.Size,
		Content:      file,
	})
}

// renderAdminForm shows the console again with the rejected form and a
// blocking alert. The product list is refetched for the page.
func renderAdminForm(w http.ResponseWriter, r *http.Request, client *session.Client, images admin.ImagePolicy, renderer Renderer, logg *logger.Logger, form admin.ProductForm, id int64, cause error) {
	ctx := r.Context()
	responses.LogError(ctx, logg, cause)

	overview, err := client.Admin.Overview(ctx)
	if err != nil {
		responses.LogError(ctx, logg, err)
	}
	data := layout(ctx, client, w, enums.PageAdmin, views.AdminContent{
		Overview:  overview,
		Form:      form,
		EditingID: id,
		MaxImage:  imageCeiling(images),
	})
	data = withError(data, cause)
	render(w, r, renderer, logg, responses.StatusFor(cause), enums.PageAdmin, data)
}
