package models

import "strings"

// InlineBlobPrefix 인라인 데이터 URI 접두사
const InlineBlobPrefix = "data:"

// IsInlineBlob reports whether ref carries the file payload itself rather than a reference.
func IsInlineBlob(ref string) bool {
	return strings.HasPrefix(ref, InlineBlobPrefix)
}

// StripInlineBlobs clears every inline payload in a deep copy of products.
// Server URLs and other references are kept.
func StripInlineBlobs(products []Product) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		cp := p.DeepCopy()
		for label, files := range cp.FilesByStage {
			for fi := range files {
				for ri := range files[fi].Revisions {
					if IsInlineBlob(files[fi].Revisions[ri].BlobRef) {
						files[fi].Revisions[ri].BlobRef = ""
					}
				}
			}
			cp.FilesByStage[label] = files
		}
		out[i] = cp
	}
	return out
}
