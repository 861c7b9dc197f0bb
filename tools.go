//go:build tools

package tools

// mockery v2 is used as an installed binary, so no blank import is needed.
// Regenerate the binder mocks with:
//
//	mockery --dir pkg/binder --name Transport --output pkg/binder/mocks --with-expecter
