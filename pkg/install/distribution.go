package install

//go:generate mockgen -destination=./mocks/distribution_mock.go -package=mocks . Distribution

// EntryPoint is one console or GUI script declared in a distribution's entry
// points metadata.
type EntryPoint struct {
	// Name is the script name to install.
	Name string
	// Object is the "module:function" reference the script invokes.
	Object string
}

// Distribution reads a wheel's package metadata. Metadata and tag parsing is
// an external concern; the installer only needs the handful of facts below.
type Distribution interface {
	// ProjectName returns the distribution's normalized project name.
	ProjectName() string
	// Version returns the distribution's version string.
	Version() string
	// MetadataDir returns the wheel-relative name of the .dist-info directory.
	MetadataDir() string
	// DataDir returns the wheel-relative name of the .data directory.
	DataDir() string
	// RootIsPurelib reports the wheel's Root-Is-Purelib flag.
	RootIsPurelib() bool
	// EntryPoints returns the declared console and GUI scripts in declaration
	// order.
	EntryPoints() []EntryPoint
}
