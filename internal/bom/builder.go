package bom

import (
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/CZERTAINLY/osfp/internal/model"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
)

var version string

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		version = "unknown"
	} else {
		version = info.Main.Version
	}
}

// Builder is a builder pattern for a CycloneDX BOM structure
type Builder struct {
	authors      []cdx.OrganizationalContact
	components   []cdx.Component
	dependencies []cdx.Dependency
	properties   []cdx.Property
}

func NewBuilder() *Builder {
	return &Builder{
		// those MUST be initialized as cyclone-dx JSON schema do not allow items to be null
		components:   []cdx.Component{},
		dependencies: []cdx.Dependency{},
		properties:   []cdx.Property{},
	}
}

func (b *Builder) AppendAuthors(authors ...cdx.OrganizationalContact) *Builder {
	b.authors = append(b.authors, authors...)
	return b
}

// AppendFingerprints adds one operating-system component per fingerprint
// and makes the scanning host depend on all of them.
func (b *Builder) AppendFingerprints(mode model.ScanMode, fps ...model.Fingerprint) *Builder {
	refs := make([]string, 0, len(fps))
	for _, fp := range fps {
		compo := FingerprintToComponent(fp)
		b.components = append(b.components, compo)
		refs = append(refs, compo.BOMRef)
	}
	if len(refs) > 0 {
		b.dependencies = append(b.dependencies, cdx.Dependency{
			Ref:          operatorRef,
			Dependencies: &refs,
		})
	}
	b.properties = append(b.properties,
		cdx.Property{Name: "osfp:scan_mode", Value: mode.ID},
		cdx.Property{Name: "osfp:nmap_args", Value: mode.Args},
	)
	return b
}

const operatorRef = "osfp:operator"

func FingerprintToComponent(fp model.Fingerprint) cdx.Component {
	name := "unknown"
	if fp.Kind.Identified() {
		name = fp.Detail
	}
	return cdx.Component{
		BOMRef: fmt.Sprintf("osfp:os/%s", fp.Target),
		Type:   cdx.ComponentTypeOS,
		Name:   name,
		Properties: &[]cdx.Property{
			{Name: "osfp:target", Value: fp.Target.String()},
			{Name: "osfp:classification", Value: fp.Kind.String()},
			{Name: "osfp:detail", Value: fp.Detail},
		},
	}
}

// BOM returns a cdx.BOM based on a data inside the Builder
func (b *Builder) BOM() cdx.BOM {
	bom := cdx.BOM{
		JSONSchema:   "https://cyclonedx.org/schema/bom-1.6.schema.json",
		BOMFormat:    "CycloneDX",
		SpecVersion:  cdx.SpecVersion1_6,
		SerialNumber: "urn:uuid:" + uuid.New().String(),
		Version:      1,
		Metadata: &cdx.Metadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Lifecycles: &[]cdx.Lifecycle{
				{
					Phase: "operations",
				},
			},
			Authors: &b.authors,
			// This can't be not nil otherwise this error will happen
			// json: error calling MarshalJSON for type *cyclonedx.ToolsChoice: unexpected end of JSON input
			Component: &cdx.Component{
				BOMRef:  operatorRef,
				Type:    cdx.ComponentTypeApplication,
				Name:    "osfp",
				Version: version,
			},
		},
		Components:   &b.components,
		Dependencies: &b.dependencies,
		Properties:   &b.properties,
	}
	return bom
}

// AsJSON encode the BOM into JSON format
func (b *Builder) AsJSON(w io.Writer) error {
	bom := b.BOM()
	return cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON).SetPretty(true).Encode(&bom)
}
