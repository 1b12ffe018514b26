package unifw

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const artifactIndexKey = "artifact-index.json"

// ArtifactEntry describes one dist tarball on the mirror.
type ArtifactEntry struct {
	Product       string    `json:"product"`
	Configuration string    `json:"configuration"`
	Filename      string    `json:"filename"`
	B3Sum         string    `json:"b3sum"`
	Size          int64     `json:"size"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// ParseArtifactIndex decodes the remote index document.
func ParseArtifactIndex(data []byte) ([]ArtifactEntry, error) {
	var index []ArtifactEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

// HandleUploadCommand implements 'unifw upload': push local dist tarballs
// that the mirror doesn't have yet (or whose checksum changed) and rewrite
// the index.
func HandleUploadCommand(ctx context.Context, cfg *Config, env Env, cleanup bool) error {
	r2, err := NewR2Client(cfg)
	if err != nil {
		return err
	}

	colArrow.Print("-> ")
	colSuccess.Println("Fetching artifact index from R2")
	remoteData, err := r2.DownloadFile(ctx, artifactIndexKey)
	var remoteIndex []ArtifactEntry
	if err != nil {
		debugf("remote index not found or error fetching: %v\n", err)
	} else {
		remoteIndex, err = ParseArtifactIndex(remoteData)
		if err != nil {
			return fmt.Errorf("failed to parse remote index: %w", err)
		}
	}
	indexByName := make(map[string]ArtifactEntry)
	for _, entry := range remoteIndex {
		indexByName[entry.Filename] = entry
	}

	distDir := DistDir(cfg, env)
	colArrow.Print("-> ")
	colSuccess.Printf("Scanning local dist archives in %s\n", distDir)
	local, err := ListDistArchives(distDir)
	if err != nil {
		return err
	}
	if len(local) == 0 {
		return fmt.Errorf("no dist archives in %s; run 'unifw dist' first", distDir)
	}

	var uploaded int
	for _, path := range local {
		name := filepath.Base(path)
		sum, err := b3sumFile(path)
		if err != nil {
			return err
		}
		size, err := fileSize(path)
		if err != nil {
			return err
		}
		if remote, ok := indexByName[name]; ok && remote.B3Sum == sum {
			debugf("%s already on mirror, skipping\n", name)
			continue
		}

		colArrow.Print("-> ")
		colSuccess.Printf("Uploading %s (%d bytes)\n", name, size)
		if err := r2.UploadLocalFile(ctx, name, path); err != nil {
			return fmt.Errorf("failed to upload %s: %w", name, err)
		}

		indexByName[name] = ArtifactEntry{
			Product:       env.Get("PRODUCT_NAME"),
			Configuration: env.Get("CONFIGURATION"),
			Filename:      name,
			B3Sum:         sum,
			Size:          size,
			UploadedAt:    time.Now().UTC(),
		}
		uploaded++
	}

	// Optionally drop remote entries with no local counterpart.
	if cleanup {
		localSet := make(map[string]bool, len(local))
		for _, path := range local {
			localSet[filepath.Base(path)] = true
		}
		for name := range indexByName {
			if !localSet[name] {
				colArrow.Print("-> ")
				colWarn.Printf("Removing stale artifact from mirror: %s\n", name)
				if err := r2.DeleteFile(ctx, name); err != nil {
					return fmt.Errorf("failed to delete %s: %w", name, err)
				}
				delete(indexByName, name)
			}
		}
	}

	newIndex := make([]ArtifactEntry, 0, len(indexByName))
	for _, entry := range indexByName {
		newIndex = append(newIndex, entry)
	}
	sort.Slice(newIndex, func(i, j int) bool { return newIndex[i].Filename < newIndex[j].Filename })

	indexData, err := json.MarshalIndent(newIndex, "", "  ")
	if err != nil {
		return err
	}
	if err := r2.UploadFile(ctx, artifactIndexKey, indexData); err != nil {
		return fmt.Errorf("failed to upload index: %w", err)
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Upload complete: %d new artifact(s), %d in index\n", uploaded, len(newIndex))
	return nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
