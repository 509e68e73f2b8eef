// Package reference defines the file references discovered in a listing and how to find them.
package reference

// Record is one top-level entry of a listing page, decoded as generic JSON
type Record map[string]any

// FileReference points at one remote file nested inside a listing record
type FileReference struct {
	// URL is the remote location of the file as found in the listing (not normalized)
	URL string `json:"url"`

	// ID identifies the nested entry; it becomes the refId of the upload
	ID string `json:"id"`

	// Name is the display name of the entry
	Name string `json:"name,omitempty"`

	// Owner identifies the top-level record the entry belongs to
	Owner string `json:"owner,omitempty"`
}

// RelayTarget tells the uploader where a file goes and what it is attached to
type RelayTarget struct {
	// Endpoint is the absolute upload URL
	Endpoint string `json:"endpoint"`

	// RefID is the owning record reference (multipart field "refId")
	RefID string `json:"ref_id"`

	// Ref is the type discriminator of the owner (multipart field "ref")
	Ref string `json:"ref"`

	// Field is the slot on the owner that receives the file (multipart field "field")
	Field string `json:"field"`
}

// Keys names the JSON keys read from each leaf entry
type Keys struct {
	URL   string `yaml:"url" validate:"required"`
	ID    string `yaml:"id" validate:"required"`
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`
}

// DefaultKeys matches the investor file entries of the backend
var DefaultKeys = Keys{
	URL:   "file_url",
	ID:    "id",
	Name:  "title",
	Owner: "documentId",
}
