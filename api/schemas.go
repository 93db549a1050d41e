package api

import (
	"cortado/history"
	"cortado/models"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StartJobResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

type JobsResponse struct {
	Jobs []history.Job `json:"jobs"`
}

// ArtifactResponse describes one downloadable clip.
type ArtifactResponse struct {
	Index        int    `json:"index"`
	Filename     string `json:"filename"`
	DownloadName string `json:"download_name"`
	Size         int    `json:"size"`
	URL          string `json:"url"`
}

// JobStateResponse is a JobState with download links instead of clip bytes.
type JobStateResponse struct {
	models.JobState
	Artifacts []ArtifactResponse `json:"artifacts,omitempty"`
}

func JobStateToResponse(s models.JobState) JobStateResponse {
	resp := JobStateResponse{JobState: s.WithoutPayloads()}
	for _, a := range s.Artifacts {
		resp.Artifacts = append(resp.Artifacts, ArtifactResponse{
			Index:        a.Index,
			Filename:     a.SourceFilename,
			DownloadName: a.DownloadName,
			Size:         a.Size,
			URL:          "/artifacts/" + a.SourceFilename,
		})
	}
	return resp
}
