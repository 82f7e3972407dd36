package classify

import (
	"strconv"

	"golang.org/x/net/html"
)

// avatarWidthThreshold is the rendered width (px-equivalent units) below
// which an image is treated as an avatar. Width 0 means "not declared" and
// never excludes by size.
const avatarWidthThreshold = 80

// Default selector chains for image classification.
var (
	DefaultImageSelectors = []string{
		"img",
		".ivm-view-attr__img-wrapper img",
		".feed-shared-image__container img",
		".feed-shared-article__image-container img",
		".feed-shared-image img",
		".entity-image",
	}

	DefaultAvatarSelectors = []string{
		".update-components-actor__avatar-image",
		".presence-entity__image",
		".feed-shared-actor__avatar",
		".evi-image",
	}
)

// ImageHeuristic decides whether an item carries a non-avatar image.
// This is a coarse presence heuristic, not identity verification: it does
// not confirm the image depicts the author, only that a content-sized,
// non-avatar-classed image exists in the item.
type ImageHeuristic struct {
	ImageSelectors  []string
	AvatarSelectors []string
}

// NewImageHeuristic creates an ImageHeuristic with the default chains.
func NewImageHeuristic() *ImageHeuristic {
	return &ImageHeuristic{
		ImageSelectors:  DefaultImageSelectors,
		AvatarSelectors: DefaultAvatarSelectors,
	}
}

// HasContentImage collects the item's image elements (generic img lookup
// first, then the content-image chain) and reports whether at least one
// survives avatar exclusion.
func (h *ImageHeuristic) HasContentImage(item *html.Node) bool {
	images := QuerySelectorAll(item, "img")
	if len(images) == 0 {
		images = ResolveAllFirst(h.ImageSelectors, item)
	}
	if len(images) == 0 {
		return false
	}

	for _, img := range images {
		if !h.isAvatar(img) {
			return true
		}
	}
	return false
}

// isAvatar excludes an image when it matches any avatar selector, or when
// its declared width is positive and below the threshold.
func (h *ImageHeuristic) isAvatar(img *html.Node) bool {
	if MatchesAny(img, h.AvatarSelectors) {
		return true
	}
	if w, err := strconv.Atoi(Attr(img, "width")); err == nil && w > 0 && w < avatarWidthThreshold {
		return true
	}
	return false
}
