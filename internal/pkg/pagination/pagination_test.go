package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFromContextClamps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := map[string]Query{
		"/":                   {Page: 1, Size: DefaultSize},
		"/?page=3&size=5":     {Page: 3, Size: 5},
		"/?page=0&size=-1":    {Page: 1, Size: DefaultSize},
		"/?page=abc&size=500": {Page: 1, Size: MaxSize},
	}
	for target, want := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", target, nil)
		if got := FromContext(c); got != want {
			t.Errorf("FromContext(%s) = %+v, want %+v", target, got, want)
		}
	}
}

func TestSlice(t *testing.T) {
	items := make([]int, 45)
	for i := range items {
		items[i] = i
	}
	page, meta := Slice(items, Query{Page: 3, Size: 20})
	if len(page) != 5 || page[0] != 40 {
		t.Errorf("page = %v", page)
	}
	if meta.Total != 45 || meta.TotalPage != 3 || meta.HasNextPage {
		t.Errorf("meta = %+v", meta)
	}

	page, meta = Slice(items, Query{Page: 9, Size: 20})
	if len(page) != 0 || meta.HasNextPage {
		t.Errorf("past the end: %v %+v", page, meta)
	}

	page, meta = Slice([]int{}, Query{Page: 1, Size: 20})
	if len(page) != 0 || meta.TotalPage != 0 {
		t.Errorf("empty: %v %+v", page, meta)
	}
}
