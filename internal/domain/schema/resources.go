// resources.go — схемы пяти ресурсов контент-платформы.
// Наборы полей соответствуют экранам дашборда: блог, кемпы и лоджи,
// галерея, туристические пакеты, направления.
package schema

// Ограничения размера загружаемых файлов.
const (
	// MaxImageSize — лимит для изображений (обложки, фото автора).
	MaxImageSize = 10 << 20 // 10 MB
	// MaxGalleryMediaSize — лимит для медиа галереи (фото и видео).
	MaxGalleryMediaSize = 100 << 20 // 100 MB
)

// imageTypes — допустимые типы для простых image-слотов.
var imageTypes = []string{"image/*"}

// galleryTypes — допустимые типы медиа галереи.
var galleryTypes = []string{
	"image/jpeg", "image/png", "image/gif", "image/webp",
	"video/mp4", "video/avi", "video/mov", "video/wmv", "video/webm", "video/mkv",
}

// statusOptions — статусы публикации.
var statusOptions = []string{"draft", "published", "archived"}

// blogResource — посты блога.
var blogResource = Resource{
	Name:    "blog",
	APIPath: "/api/blogs",
	Fields: []Field{
		{Name: "title", Kind: KindText, Required: true},
		{Name: "slug", Kind: KindText, Required: true},
		{Name: "content", Kind: KindText, Required: true},
		{Name: "excerpt", Kind: KindText},
		{Name: "author_name", Kind: KindText},
		{Name: "category", Kind: KindEnum, Options: []string{"safari", "wildlife", "travel-tips", "conservation", "culture"}},
		{Name: "status", Kind: KindEnum, Options: statusOptions},
		{Name: "tags", Kind: KindArray},
		{Name: "featured", Kind: KindBool, Default: "false"},
		{Name: "priority", Kind: KindNumber, Default: "0"},
		{Name: "read_time", Kind: KindNumber},
		{Name: "published_at", Kind: KindDate},
	},
	Slots: []MediaSlot{
		{
			Name:         "featured_image",
			RefField:     "featured_image",
			ClearField:   "remove_featured_image",
			MaxSize:      MaxImageSize,
			AllowedTypes: imageTypes,
		},
		{
			Name:         "author_image",
			RefField:     "author_image",
			ClearField:   "remove_author_image",
			MaxSize:      MaxImageSize,
			AllowedTypes: imageTypes,
		},
	},
}

// campResource — кемпы и лоджи.
var campResource = Resource{
	Name:    "camp",
	APIPath: "/api/camps",
	Fields: []Field{
		{Name: "name", Kind: KindText, Required: true},
		{Name: "location", Kind: KindText, Required: true},
		{Name: "description", Kind: KindText},
		{Name: "category", Kind: KindEnum, Options: []string{"camp", "lodge"}, Default: "camp"},
		{Name: "amenities", Kind: KindArray},
		{Name: "wildlife", Kind: KindArray},
		{Name: "active", Kind: KindBool, Default: "true"},
		{Name: "sort_order", Kind: KindNumber, Default: "0"},
	},
	Slots: []MediaSlot{
		{
			Name:         "image",
			RefField:     "image",
			ClearField:   "remove_image",
			MaxSize:      MaxImageSize,
			AllowedTypes: imageTypes,
		},
	},
}

// galleryResource — элементы галереи (фото и видео).
var galleryResource = Resource{
	Name:    "gallery",
	APIPath: "/api/gallery",
	Fields: []Field{
		{Name: "title", Kind: KindText, Required: true},
		{Name: "category", Kind: KindEnum, Required: true, Options: []string{"wildlife", "landscape", "camps", "people", "birds"}},
		{Name: "description", Kind: KindText},
		{Name: "type", Kind: KindEnum, Options: []string{"image", "video"}},
		{Name: "tags", Kind: KindArray},
		{Name: "featured", Kind: KindBool, Default: "false"},
	},
	Slots: []MediaSlot{
		{
			Name:             "media",
			RefField:         "media_url",
			ClearField:       "remove_media",
			MaxSize:          MaxGalleryMediaSize,
			AllowedTypes:     galleryTypes,
			RequiredOnCreate: true,
			DerivesKind:      true,
			KindField:        "type",
		},
	},
}

// tourResource — туристические пакеты.
var tourResource = Resource{
	Name:    "tour",
	APIPath: "/api/tours",
	Fields: []Field{
		{Name: "title", Kind: KindText, Required: true},
		{Name: "duration", Kind: KindNumber, Required: true},
		{Name: "slug", Kind: KindText},
		{Name: "description", Kind: KindText},
		{Name: "price", Kind: KindNumber},
		{Name: "highlights", Kind: KindArray},
		{Name: "status", Kind: KindEnum, Options: statusOptions},
		{Name: "featured", Kind: KindBool, Default: "false"},
		{Name: "priority", Kind: KindNumber, Default: "0"},
		{Name: "start_date", Kind: KindDate},
	},
	Slots: []MediaSlot{
		{
			Name:         "image",
			RefField:     "image",
			ClearField:   "remove_image",
			MaxSize:      MaxImageSize,
			AllowedTypes: imageTypes,
		},
	},
}

// destinationResource — направления.
var destinationResource = Resource{
	Name:    "destination",
	APIPath: "/api/destinations",
	Fields: []Field{
		{Name: "name", Kind: KindText, Required: true},
		{Name: "slug", Kind: KindText},
		{Name: "description", Kind: KindText},
		{Name: "region", Kind: KindText},
		{Name: "best_time", Kind: KindText},
		{Name: "wildlife", Kind: KindArray},
		{Name: "highlights", Kind: KindArray},
		{Name: "active", Kind: KindBool, Default: "true"},
		{Name: "sort_order", Kind: KindNumber, Default: "0"},
	},
	Slots: []MediaSlot{
		{
			Name:         "image",
			RefField:     "image",
			ClearField:   "remove_image",
			MaxSize:      MaxImageSize,
			AllowedTypes: imageTypes,
		},
	},
}

// ordered — ресурсы в порядке регистрации (для стабильного вывода Names).
var ordered = []*Resource{
	&blogResource,
	&campResource,
	&galleryResource,
	&tourResource,
	&destinationResource,
}

// registry — индекс схем по имени ресурса.
var registry = func() map[string]*Resource {
	m := make(map[string]*Resource, len(ordered))
	for _, r := range ordered {
		m[r.Name] = r
	}
	return m
}()
