package indexer

import (
	"context"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sgxvirt/repobuild/internal/models"
	"github.com/sgxvirt/repobuild/internal/scanner"
	"github.com/sgxvirt/repobuild/internal/signer"
	"github.com/sgxvirt/repobuild/internal/utils"
	"github.com/sirupsen/logrus"
)

// Compression selects the compression of the primary metadata file.
type Compression string

const (
	CompressionGzip Compression = "gz"
	CompressionXz   Compression = "xz"
)

// NativeIndexer generates createrepo-compatible repodata in-process. It scans
// the repository directory for RPMs on every run, so the index always
// reflects the cumulative package set.
type NativeIndexer struct {
	signer      signer.Signer
	compression Compression
}

// NewNativeIndexer creates a native indexer. The signer may be nil for
// unsigned repositories.
func NewNativeIndexer(s signer.Signer, compression Compression) *NativeIndexer {
	if compression == "" {
		compression = CompressionGzip
	}
	return &NativeIndexer{
		signer:      s,
		compression: compression,
	}
}

// Index regenerates repodata/ under dir from the RPMs currently present.
func (g *NativeIndexer) Index(ctx context.Context, dir string) error {
	paths, err := scanner.Scan(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to scan repository: %w", err)
	}

	var packages []models.Package
	for _, path := range paths {
		pkg, err := ParsePackage(path)
		if err != nil {
			logrus.Warnf("Failed to parse %s: %v", path, err)
			continue
		}

		// Store repo-relative location in the metadata
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to resolve package location: %w", err)
		}
		pkg.Filename = filepath.ToSlash(rel)

		packages = append(packages, *pkg)
	}

	logrus.Infof("Indexing %d packages in %s", len(packages), dir)

	repodataDir := filepath.Join(dir, "repodata")
	if err := utils.EnsureDir(repodataDir); err != nil {
		return err
	}

	// Generate primary.xml
	primaryXML, err := generatePrimaryXML(packages)
	if err != nil {
		return fmt.Errorf("failed to generate primary.xml: %w", err)
	}

	var compressed []byte
	switch g.compression {
	case CompressionXz:
		compressed, err = utils.XzCompress(primaryXML)
	default:
		compressed, err = utils.GzipCompress(primaryXML)
	}
	if err != nil {
		return fmt.Errorf("failed to compress primary.xml: %w", err)
	}

	primaryChecksum := utils.SHA256Bytes(compressed)
	primaryHref := fmt.Sprintf("repodata/%s-primary.xml.%s", primaryChecksum, g.compression)
	primaryPath := filepath.Join(dir, filepath.FromSlash(primaryHref))
	if err := utils.WriteFile(primaryPath, compressed, 0644); err != nil {
		return fmt.Errorf("failed to write primary metadata: %w", err)
	}

	// Generate repomd.xml
	repomdXML, err := generateRepomdXML(repomdInput{
		checksum:     primaryChecksum,
		openChecksum: utils.SHA256Bytes(primaryXML),
		href:         primaryHref,
		size:         int64(len(compressed)),
		openSize:     int64(len(primaryXML)),
	})
	if err != nil {
		return fmt.Errorf("failed to generate repomd.xml: %w", err)
	}

	repomdPath := filepath.Join(repodataDir, "repomd.xml")
	if err := utils.WriteFile(repomdPath, repomdXML, 0644); err != nil {
		return fmt.Errorf("failed to write repomd.xml: %w", err)
	}

	// Sign repomd.xml if signer available
	if g.signer != nil {
		signature, err := g.signer.SignDetached(repomdXML)
		if err != nil {
			return fmt.Errorf("failed to sign repomd.xml: %w", err)
		}

		sigPath := filepath.Join(repodataDir, "repomd.xml.asc")
		if err := utils.WriteFile(sigPath, signature, 0644); err != nil {
			return fmt.Errorf("failed to write repomd.xml.asc: %w", err)
		}
	}

	logrus.Infof("Repository index regenerated (%d packages)", len(packages))
	return nil
}

// XML structures for metadata

type metadata struct {
	XMLName       xml.Name `xml:"metadata"`
	Xmlns         string   `xml:"xmlns,attr"`
	XmlnsRpm      string   `xml:"xmlns:rpm,attr"`
	PackagesCount int      `xml:"packages,attr"`
	Packages      []xmlPkg `xml:"package"`
}

type xmlPkg struct {
	Type     string      `xml:"type,attr"`
	Name     string      `xml:"name"`
	Arch     string      `xml:"arch"`
	Version  xmlVersion  `xml:"version"`
	Checksum xmlChecksum `xml:"checksum"`
	Summary  string      `xml:"summary"`
	Packager string      `xml:"packager,omitempty"`
	URL      string      `xml:"url,omitempty"`
	Time     xmlTime     `xml:"time"`
	Size     xmlSize     `xml:"size"`
	Location xmlLocation `xml:"location"`
	Format   xmlFormat   `xml:"format"`
}

type xmlVersion struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type xmlChecksum struct {
	Type  string `xml:"type,attr"`
	Pkgid string `xml:"pkgid,attr"`
	Value string `xml:",chardata"`
}

type xmlTime struct {
	File  int64 `xml:"file,attr"`
	Build int64 `xml:"build,attr"`
}

type xmlSize struct {
	Package   int64 `xml:"package,attr"`
	Installed int64 `xml:"installed,attr"`
	Archive   int64 `xml:"archive,attr"`
}

type xmlLocation struct {
	Href string `xml:"href,attr"`
}

type xmlFormat struct {
	License string `xml:"rpm:license,omitempty"`
	Group   string `xml:"rpm:group,omitempty"`
}

func generatePrimaryXML(packages []models.Package) ([]byte, error) {
	var xmlPackages []xmlPkg

	for _, pkg := range packages {
		buildTime := pkg.BuildTime
		if buildTime == 0 {
			buildTime = time.Now().Unix()
		}

		xmlPackages = append(xmlPackages, xmlPkg{
			Type: "rpm",
			Name: pkg.Name,
			Arch: pkg.Architecture,
			Version: xmlVersion{
				Epoch: pkg.Epoch,
				Ver:   pkg.Version,
				Rel:   pkg.Release,
			},
			Checksum: xmlChecksum{
				Type:  "sha256",
				Pkgid: "YES",
				Value: pkg.SHA256Sum,
			},
			Summary:  pkg.Summary,
			Packager: pkg.Packager,
			URL:      pkg.Homepage,
			Time: xmlTime{
				File:  time.Now().Unix(),
				Build: buildTime,
			},
			Size: xmlSize{
				Package:   pkg.Size,
				Installed: pkg.Size,
				Archive:   pkg.Size,
			},
			Location: xmlLocation{
				Href: pkg.Filename,
			},
			Format: xmlFormat{
				License: pkg.License,
				Group:   pkg.Group,
			},
		})
	}

	meta := metadata{
		Xmlns:         "http://linux.duke.edu/metadata/common",
		XmlnsRpm:      "http://linux.duke.edu/metadata/rpm",
		PackagesCount: len(packages),
		Packages:      xmlPackages,
	}

	xmlBytes, err := xml.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), xmlBytes...), nil
}

type repomd struct {
	XMLName  xml.Name     `xml:"repomd"`
	Xmlns    string       `xml:"xmlns,attr"`
	XmlnsRpm string       `xml:"xmlns:rpm,attr"`
	Revision int64        `xml:"revision"`
	Data     []repomdData `xml:"data"`
}

type repomdData struct {
	Type         string         `xml:"type,attr"`
	Checksum     repomdChecksum `xml:"checksum"`
	OpenChecksum repomdChecksum `xml:"open-checksum"`
	Location     repomdLocation `xml:"location"`
	Timestamp    int64          `xml:"timestamp"`
	Size         int64          `xml:"size"`
	OpenSize     int64          `xml:"open-size"`
}

type repomdChecksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type repomdLocation struct {
	Href string `xml:"href,attr"`
}

type repomdInput struct {
	checksum     string
	openChecksum string
	href         string
	size         int64
	openSize     int64
}

func generateRepomdXML(primary repomdInput) ([]byte, error) {
	repomd := repomd{
		Xmlns:    "http://linux.duke.edu/metadata/repo",
		XmlnsRpm: "http://linux.duke.edu/metadata/rpm",
		Revision: time.Now().Unix(),
		Data: []repomdData{
			{
				Type: "primary",
				Checksum: repomdChecksum{
					Type:  "sha256",
					Value: primary.checksum,
				},
				OpenChecksum: repomdChecksum{
					Type:  "sha256",
					Value: primary.openChecksum,
				},
				Location: repomdLocation{
					Href: primary.href,
				},
				Timestamp: time.Now().Unix(),
				Size:      primary.size,
				OpenSize:  primary.openSize,
			},
		},
	}

	xmlBytes, err := xml.MarshalIndent(repomd, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), xmlBytes...), nil
}
