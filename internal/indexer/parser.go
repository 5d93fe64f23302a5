package indexer

import (
	"fmt"
	"os"

	"github.com/sassoftware/go-rpmutils"
	"github.com/sgxvirt/repobuild/internal/models"
	"github.com/sgxvirt/repobuild/internal/utils"
)

// ParsePackage parses an RPM file and extracts the metadata needed for
// repository indexing
func ParsePackage(path string) (*models.Package, error) {
	// Calculate checksum
	checksum, err := utils.SHA256File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	// Open RPM file
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Read RPM header
	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read RPM: %w", err)
	}

	pkg := &models.Package{
		Name:         getStringTag(rpm, rpmutils.NAME),
		Epoch:        "0",
		Version:      getStringTag(rpm, rpmutils.VERSION),
		Release:      getStringTag(rpm, rpmutils.RELEASE),
		Architecture: getStringTag(rpm, rpmutils.ARCH),
		Summary:      getStringTag(rpm, rpmutils.SUMMARY),
		Packager:     getStringTag(rpm, rpmutils.PACKAGER),
		Homepage:     getStringTag(rpm, rpmutils.URL),
		License:      getStringTag(rpm, rpmutils.LICENSE),
		Group:        getStringTag(rpm, rpmutils.GROUP),
		BuildTime:    getIntTag(rpm, rpmutils.BUILDTIME),
	}

	// Keep full path; the indexer rewrites it to a repo-relative href
	pkg.Filename = path
	pkg.Size = checksum.Size
	pkg.SHA256Sum = checksum.SHA256

	if pkg.Release == "" {
		pkg.Release = "1"
	}

	return pkg, nil
}

// getStringTag safely gets a string tag from RPM
func getStringTag(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}

	// Handle different types that might be returned
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	default:
		return fmt.Sprintf("%v", v)
	}

	return ""
}

// getIntTag safely gets an integer tag from RPM
func getIntTag(rpm *rpmutils.Rpm, tag int) int64 {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return 0
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	if i64, ok := val.(int64); ok {
		return i64
	}
	return 0
}
