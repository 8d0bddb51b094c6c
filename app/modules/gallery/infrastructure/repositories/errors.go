package gallerydb

import "errors"

// ErrImageNotFound indicates the image id does not exist.
var ErrImageNotFound = errors.New("image not found")
