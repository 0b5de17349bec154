package models

import "testing"

func TestProject_Validate(t *testing.T) {
	tests := []struct {
		name    string
		project Project
		wantErr bool
	}{
		{"valid", Project{Name: "godocs", SourceURL: "https://go.dev/doc/", CrawlDepth: 2}, false},
		{"valid http", Project{Name: "godocs", SourceURL: "http://go.dev/doc/", CrawlDepth: 0}, false},
		{"missing name", Project{SourceURL: "https://go.dev/doc/"}, true},
		{"missing url", Project{Name: "godocs"}, true},
		{"bad scheme", Project{Name: "godocs", SourceURL: "ftp://go.dev/doc/"}, true},
		{"no host", Project{Name: "godocs", SourceURL: "https:///doc/"}, true},
		{"negative depth", Project{Name: "godocs", SourceURL: "https://go.dev/doc/", CrawlDepth: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.project.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got err=%v, want error=%v", err, tt.wantErr)
			}
		})
	}
}

func TestProject_SeedHost(t *testing.T) {
	p := Project{SourceURL: "https://Docs.Example.COM:443/guide/"}
	if got := p.SeedHost(); got != "docs.example.com" {
		t.Errorf("SeedHost: got %q, want %q", got, "docs.example.com")
	}
}

func TestProject_StatusMarkers(t *testing.T) {
	p := Project{Name: "godocs", SourceURL: "https://go.dev/doc/", Status: ProjectStatusCreated}

	p.MarkCrawling()
	if p.Status != ProjectStatusCrawling {
		t.Errorf("Status: got %v, want %v", p.Status, ProjectStatusCrawling)
	}

	p.MarkReady()
	if p.Status != ProjectStatusReady || p.StatusMessage != "" {
		t.Errorf("MarkReady: got status=%v message=%q", p.Status, p.StatusMessage)
	}

	p.MarkError("seed unreachable")
	if p.Status != ProjectStatusError || p.StatusMessage != "seed unreachable" {
		t.Errorf("MarkError: got status=%v message=%q", p.Status, p.StatusMessage)
	}
	if p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt: got zero time, want set")
	}
}
