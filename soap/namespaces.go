package soap

import (
	"fmt"
	"strings"
)

// XML Namespace URIs.
const (
	// NsSoap is the SOAP 1.1 envelope namespace used for requests.
	NsSoap = "http://schemas.xmlsoap.org/soap/envelope/"

	// NsSoap12 is the SOAP 1.2 envelope namespace. Responses in either
	// version are accepted.
	NsSoap12 = "http://www.w3.org/2003/05/soap-envelope"

	// NsXsi is the XML Schema Instance namespace.
	NsXsi = "http://www.w3.org/2001/XMLSchema-instance"
)

// DefaultNamespaceTemplate builds the service namespace from the server,
// service group and API version.
const DefaultNamespaceTemplate = "https://adwords.google.com/api/adwords/{group}/{version}"

// ServiceNamespace expands a namespace template. The placeholders {group}
// and {version} are replaced; anything else is kept verbatim.
func ServiceNamespace(template, group, version string) string {
	if template == "" {
		template = DefaultNamespaceTemplate
	}
	r := strings.NewReplacer("{group}", group, "{version}", version)
	return r.Replace(template)
}

// ServicePath returns the URL path of a service endpoint.
func ServicePath(group, version, service string) string {
	return fmt.Sprintf("/api/adwords/%s/%s/%s", group, version, service)
}
