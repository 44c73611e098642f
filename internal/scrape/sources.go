package scrape

import "github.com/silkworks-ai/docrag/internal/domain"

// PageRef identifies one documentation page to fetch, with the section and
// version provenance stamped on the resulting document.
type PageRef struct {
	URL     string
	Section string
	Version string
}

// frameworkPages covers the App Router documentation that generated
// projects lean on most heavily.
var frameworkPages = []PageRef{
	{URL: "https://nextjs.org/docs/app/building-your-application/routing", Section: "routing", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/routing/layouts-and-templates", Section: "routing", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/routing/pages", Section: "routing", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/routing/loading-ui-and-streaming", Section: "routing", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/routing/error-handling", Section: "routing", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/routing/middleware", Section: "routing", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/data-fetching/fetching", Section: "data-fetching", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/data-fetching/server-actions-and-mutations", Section: "data-fetching", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/rendering/server-components", Section: "rendering", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/rendering/client-components", Section: "rendering", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/optimizing/images", Section: "optimizing", Version: "15"},
	{URL: "https://nextjs.org/docs/app/building-your-application/optimizing/metadata", Section: "optimizing", Version: "15"},
	{URL: "https://nextjs.org/docs/app/api-reference/file-conventions/page", Section: "file-conventions", Version: "15"},
	{URL: "https://nextjs.org/docs/app/api-reference/file-conventions/layout", Section: "file-conventions", Version: "15"},
	{URL: "https://nextjs.org/docs/app/api-reference/file-conventions/route", Section: "file-conventions", Version: "15"},
}

// securityPages covers the OWASP cheat sheets most relevant to generated
// web applications.
var securityPages = []PageRef{
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/Authentication_Cheat_Sheet.html", Section: "authentication"},
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/Session_Management_Cheat_Sheet.html", Section: "session"},
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/Input_Validation_Cheat_Sheet.html", Section: "input-validation"},
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/SQL_Injection_Prevention_Cheat_Sheet.html", Section: "sql-injection"},
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/Cross_Site_Scripting_Prevention_Cheat_Sheet.html", Section: "xss"},
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/CSRF_Prevention_Cheat_Sheet.html", Section: "csrf"},
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html", Section: "password-storage"},
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/Secrets_Management_Cheat_Sheet.html", Section: "secrets"},
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/REST_Security_Cheat_Sheet.html", Section: "api-security"},
	{URL: "https://cheatsheetseries.owasp.org/cheatsheets/Authorization_Cheat_Sheet.html", Section: "authorization"},
}

// seoPages covers search and performance guidance for public-facing sites.
var seoPages = []PageRef{
	{URL: "https://developers.google.com/search/docs/fundamentals/seo-starter-guide", Section: "fundamentals"},
	{URL: "https://developers.google.com/search/docs/appearance/structured-data/intro-structured-data", Section: "structured-data"},
	{URL: "https://developers.google.com/search/docs/crawling-indexing/sitemaps/overview", Section: "crawling"},
	{URL: "https://web.dev/articles/vitals", Section: "performance"},
	{URL: "https://web.dev/articles/optimize-lcp", Section: "performance"},
}

// PagesFor returns the page catalog for a source type, or nil for source
// types without a bundled scraper.
func PagesFor(sourceType domain.SourceType) []PageRef {
	switch sourceType {
	case domain.SourceFrameworkDocs:
		return frameworkPages
	case domain.SourceSecurityDocs:
		return securityPages
	case domain.SourceSEODocs:
		return seoPages
	}
	return nil
}
