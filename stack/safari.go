package stack

import "strings"

// extractSafariExtensionDetails rewrites frames emitted from Safari
// extensions. The engine folds the extension scheme into the function
// name, so the scheme is moved back onto the filename.
func extractSafariExtensionDetails(function, filename string) (string, string) {
	isExtension := strings.Contains(function, "safari-extension")
	isWebExtension := strings.Contains(function, "safari-web-extension")
	if !isExtension && !isWebExtension {
		return function, filename
	}

	fn := unknownFunction
	if before, _, found := strings.Cut(function, "@"); found {
		fn = before
	}
	if isExtension {
		return fn, "safari-extension:" + filename
	}
	return fn, "safari-web-extension:" + filename
}
