package httpapi

import (
	"net/http"
	"testing"

	"github.com/kegdev/hearth/internal/model"
)

func TestTagRoutes(t *testing.T) {
	server := newTestServer(t)

	var tag model.Tag
	status := call(t, server.URL, "", http.MethodPost, "/api/tags", model.TagInput{Name: model.Ptr("tools")}, &tag)
	if status != http.StatusCreated || tag.UserID != "owner" || tag.Color == "" {
		t.Fatalf("create tag: %d %+v", status, tag)
	}
	if status := call(t, server.URL, "", http.MethodPost, "/api/tags", model.TagInput{Name: model.Ptr("TOOLS")}, nil); status != http.StatusConflict {
		t.Fatalf("duplicate tag status: %d", status)
	}
	if status := call(t, server.URL, "", http.MethodPost, "/api/tags", model.TagInput{Name: model.Ptr("x"), Color: model.Ptr("blue")}, nil); status != http.StatusBadRequest {
		t.Fatalf("bad color status: %d", status)
	}

	var tags []model.Tag
	call(t, server.URL, "stranger", http.MethodGet, "/api/tags", nil, &tags)
	if len(tags) != 0 {
		t.Fatalf("stranger tags: %+v", tags)
	}
	if status := call(t, server.URL, "stranger", http.MethodPut, "/api/tags/"+tag.ID, model.TagInput{Name: model.Ptr("mine")}, nil); status != http.StatusNotFound {
		t.Fatalf("stranger update status: %d", status)
	}

	var updated model.Tag
	status = call(t, server.URL, "", http.MethodPut, "/api/tags/"+tag.ID, model.TagInput{Color: model.Ptr("#00ff00")}, &updated)
	if status != http.StatusOK || updated.Color != "#00ff00" || updated.Name != "tools" {
		t.Fatalf("update tag: %d %+v", status, updated)
	}

	if status := call(t, server.URL, "", http.MethodDelete, "/api/tags/"+tag.ID, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete tag status: %d", status)
	}
	call(t, server.URL, "", http.MethodGet, "/api/tags", nil, &tags)
	if len(tags) != 0 {
		t.Fatalf("tags after delete: %+v", tags)
	}
}

func TestCategoryRoutes(t *testing.T) {
	server := newTestServer(t)

	var created []model.Category
	status := call(t, server.URL, "", http.MethodPost, "/api/categories/from-template", model.CategoryTemplateInput{Template: "Books & Media"}, &created)
	if status != http.StatusCreated || len(created) == 0 || created[0].Name != "Books & Media" {
		t.Fatalf("from template: %d %+v", status, created)
	}
	if status := call(t, server.URL, "", http.MethodPost, "/api/categories/from-template", model.CategoryTemplateInput{Template: "nope"}, nil); status != http.StatusBadRequest {
		t.Fatalf("unknown template status: %d", status)
	}

	var games model.Category
	status = call(t, server.URL, "", http.MethodPost, "/api/categories", model.CategoryInput{Name: model.Ptr("Games"), ParentID: model.Ptr(created[0].ID)}, &games)
	if status != http.StatusCreated || games.Path != "Books & Media > Games" {
		t.Fatalf("create category: %d %+v", status, games)
	}
	if status := call(t, server.URL, "", http.MethodDelete, "/api/categories/"+created[0].ID, nil, nil); status != http.StatusConflict {
		t.Fatalf("delete parent status: %d", status)
	}
	if status := call(t, server.URL, "stranger", http.MethodDelete, "/api/categories/"+games.ID, nil, nil); status != http.StatusNotFound {
		t.Fatalf("stranger delete status: %d", status)
	}

	var container model.Container
	call(t, server.URL, "", http.MethodPost, "/api/containers", model.ContainerInput{Name: model.Ptr("Shelf")}, &container)
	if status := call(t, server.URL, "", http.MethodPost, "/api/containers/"+container.ID+"/items",
		model.ItemInput{Name: model.Ptr("Chess"), CategoryID: model.Ptr("missing")}, nil); status != http.StatusBadRequest {
		t.Fatalf("unknown category status: %d", status)
	}
	var item model.Item
	status = call(t, server.URL, "", http.MethodPost, "/api/containers/"+container.ID+"/items",
		model.ItemInput{Name: model.Ptr("Chess"), CategoryID: model.Ptr(games.ID)}, &item)
	if status != http.StatusCreated || item.CategoryID != games.ID {
		t.Fatalf("create item: %d %+v", status, item)
	}

	var moved model.Category
	status = call(t, server.URL, "", http.MethodPut, "/api/categories/"+games.ID, model.CategoryInput{ParentID: model.Ptr("")}, &moved)
	if status != http.StatusOK || moved.Path != "Games" {
		t.Fatalf("move category: %d %+v", status, moved)
	}
	if status := call(t, server.URL, "", http.MethodDelete, "/api/categories/"+games.ID, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete category status: %d", status)
	}

	var items []model.Item
	call(t, server.URL, "", http.MethodGet, "/api/containers/"+container.ID+"/items", nil, &items)
	if len(items) != 1 || items[0].CategoryID != "" {
		t.Fatalf("items after category delete: %+v", items)
	}
}
