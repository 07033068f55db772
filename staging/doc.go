// Package staging materializes single-pass upload streams into temporary files
// that later pipeline stages can read repeatedly.
package staging
