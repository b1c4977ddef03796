// Package docs provides generated OpenAPI documentation.
//
// Kartescan API
//
//	@title			Kartescan API
//	@version		1.0
//	@description	Medical chart digitization API for chart extraction, scoring, and human review.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/kartescan/kartescan
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8780
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/kartescan/serve.go -o ./swagger --parseDependency --parseInternal
