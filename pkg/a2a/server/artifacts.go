package server

import (
	"log/slog"

	"github.com/weftworks/weft/pkg/a2a"
)

// inlineStringLimit is the largest string value returned inline; longer
// strings are promoted to document artifacts.
const inlineStringLimit = 1024

// deriveArtifacts splits an execution's public context into inline result
// values and artifacts. Long strings become document artifacts; maps and
// slices become data artifacts. Scalars and short strings stay inline.
func deriveArtifacts(values map[string]interface{}) ([]a2a.Artifact, map[string]interface{}) {
	var artifacts []a2a.Artifact
	inline := make(map[string]interface{}, len(values))

	for key, value := range values {
		switch v := value.(type) {
		case string:
			if len(v) <= inlineStringLimit {
				inline[key] = v
				continue
			}
			doc, err := a2a.NewDocumentArtifact(key, v)
			if err != nil {
				slog.Warn("Failed to derive document artifact", "key", key, "error", err)
				inline[key] = v
				continue
			}
			artifacts = append(artifacts, doc)
			inline[key] = artifactRef(doc)

		case map[string]interface{}, []interface{}:
			data, err := a2a.NewDataArtifact(key, v)
			if err != nil {
				slog.Warn("Failed to derive data artifact", "key", key, "error", err)
				inline[key] = v
				continue
			}
			artifacts = append(artifacts, data)
			inline[key] = artifactRef(data)

		default:
			inline[key] = value
		}
	}

	return artifacts, inline
}

// artifactRef is the inline placeholder left where a value was promoted.
func artifactRef(a a2a.Artifact) map[string]interface{} {
	core := a.Core()
	return map[string]interface{}{
		"artifact_id": core.ID,
		"type":        string(a.ArtifactType()),
	}
}
