package config

const (
	defaultDomain      = "EXAMPLE"
	defaultProject     = "QA"
	defaultTestsFolder = `Subject`
	defaultSMTPPort    = 25
)

// DefaultMapping returns the built-in vendor-field table used when neither a
// mapping file nor an inline mapping section is provided. The vendor keys
// are the stock QC ALM test fields plus the user-NN custom fields of the
// original deployment.
func DefaultMapping() *Mapping {
	m, err := NewMapping([]Entry{
		{VendorKey: "user-12", Column: "Feature code"},
		{VendorKey: "user-10", Column: "Test case ID"},
		{VendorKey: "name", Column: "Test name"},
		{VendorKey: "creation-time", Column: "Creation date"},
		{VendorKey: "subtype-id", Column: "Type"},
		{VendorKey: "user-09", Column: "Test mode"},
		{VendorKey: "user-06", Column: "Test level"},
		{VendorKey: "user-13", Column: "Test execution time"},
		{VendorKey: "user-14", Column: "Requirement ID"},
		{VendorKey: "user-01", Column: "Config interface"},
		{VendorKey: "user-05", Column: "IP version"},
		{VendorKey: "user-02", Column: "LAN interface"},
		{VendorKey: "id", Column: "ALM internal ID"},
		{VendorKey: "user-04", Column: "WAN connection"},
		{VendorKey: "user-03", Column: "WAN mode"},
		{VendorKey: "user-16", Column: "Test title"},
		{VendorKey: "user-15", Column: "Test type"},
		{VendorKey: "owner", Column: "Owner"},
		{VendorKey: "description", Column: "Description"},
	})
	if err != nil {
		// The table above is static; a failure here is a programming error.
		panic(err)
	}
	return m
}
