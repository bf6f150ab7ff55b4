package catalog

import (
	"regexp"
	"strings"
)

// driveFileIDPattern matches the file id segment of a Drive share URL,
// e.g. https://drive.google.com/file/d/<id>/view.
var driveFileIDPattern = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)

// notFoundSentinel is the literal the sheet uses for cells with no asset link.
const notFoundSentinel = "Not found"

// AssetKind classifies an asset as a thumbnail image or a video.
type AssetKind int

const (
	KindThumb AssetKind = iota
	KindVideo
)

func (k AssetKind) String() string {
	switch k {
	case KindThumb:
		return "thumb"
	case KindVideo:
		return "video"
	default:
		return ""
	}
}

// ParseKind converts a stored kind string back into an AssetKind.
// Unknown strings fall back to KindThumb.
func ParseKind(s string) AssetKind {
	if s == "video" {
		return KindVideo
	}
	return KindThumb
}

// Key returns the deterministic object-store key for an asset of this kind.
func (k AssetKind) Key(fileID string) string {
	if k == KindVideo {
		return "videos/" + fileID + ".mp4"
	}
	return "thumbs/" + fileID + ".jpg"
}

// ContentType returns the object-store content type for an asset of this kind.
func (k AssetKind) ContentType() string {
	if k == KindVideo {
		return "video/mp4"
	}
	return "image/jpeg"
}

// Asset is a single Drive file reference discovered in the catalog.
//
// Identity is the file id alone; Kind is fixed by the column the id was first
// discovered in and is never re-derived.
type Asset struct {
	ID   string
	Kind AssetKind
}

// ExtractFileID pulls a Drive file id out of a catalog cell.
//
// Empty, whitespace-only, and "Not found" cells carry no id.
func ExtractFileID(cell string) (string, bool) {
	if cell == notFoundSentinel || strings.TrimSpace(cell) == "" {
		return "", false
	}
	match := driveFileIDPattern.FindStringSubmatch(cell)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// columnRole pairs a sheet column index with the asset kind assigned to ids
// discovered there.
type columnRole struct {
	column int
	kind   AssetKind
}

// assetColumns lists the Drive-link columns in discovery-priority order:
// the 9:16 and 4:5 video links, then the static thumbnail, then the four
// carousel images. The order is load-bearing: the first column an id appears
// in fixes its kind for good.
var assetColumns = []columnRole{
	{23, KindVideo}, // 9:16 video
	{24, KindVideo}, // 4:5 video
	{25, KindThumb}, // 4:5 static thumbnail
	{26, KindThumb}, // carousel 1
	{27, KindThumb}, // carousel 2
	{28, KindThumb}, // carousel 3
	{29, KindThumb}, // carousel 4
}

// Collect walks every row and returns the deduplicated asset list in
// discovery order.
//
// The first occurrence of a file id wins: later sightings of the same id,
// even under a different column role, are ignored.
func Collect(rows [][]string) []Asset {
	seen := make(map[string]struct{})
	var assets []Asset

	for _, row := range rows {
		for _, role := range assetColumns {
			if role.column >= len(row) {
				continue
			}

			id, ok := ExtractFileID(row[role.column])
			if !ok {
				continue
			}

			if _, dup := seen[id]; dup {
				continue
			}

			seen[id] = struct{}{}
			assets = append(assets, Asset{ID: id, Kind: role.kind})
		}
	}

	return assets
}
