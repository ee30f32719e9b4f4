// Package main is the entry point for postmeta.
//
//	@title						postmeta API
//	@version					1.0
//	@description				Posts and their registered metadata fields over JSON:API.
//
//	@BasePath					/api/v2
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token or API key (format: "Bearer {token}")
package main

func main() {
	Execute()
}
