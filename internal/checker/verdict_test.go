package checker

import "testing"

func TestDeriveVerdict(t *testing.T) {
	tests := []struct {
		name         string
		submitters   []string
		submitter    string
		refOwner     string
		wantStatus   string
		wantIsReal   bool
		wantUploader string
	}{
		{
			name:         "no history at all",
			submitters:   []string{"bob"},
			submitter:    "bob",
			refOwner:     "ref",
			wantStatus:   StatusFake,
			wantIsReal:   false,
			wantUploader: "",
		},
		{
			name:         "other uploader without reference owner",
			submitters:   []string{"alice", "bob"},
			submitter:    "bob",
			refOwner:     "ref",
			wantStatus:   StatusNew,
			wantIsReal:   true,
			wantUploader: "bob",
		},
		{
			name:         "reference owner plus another uploader",
			submitters:   []string{"ref", "alice", "bob"},
			submitter:    "bob",
			refOwner:     "ref",
			wantStatus:   StatusScanned,
			wantIsReal:   true,
			wantUploader: "alice",
		},
		{
			name:         "first relevant uploader wins",
			submitters:   []string{"ref", "carol", "alice", "bob"},
			submitter:    "bob",
			refOwner:     "ref",
			wantStatus:   StatusScanned,
			wantIsReal:   true,
			wantUploader: "carol",
		},
		{
			name:         "only reference owner and caller",
			submitters:   []string{"ref", "bob"},
			submitter:    "bob",
			refOwner:     "ref",
			wantStatus:   StatusNew,
			wantIsReal:   true,
			wantUploader: "bob",
		},
		{
			name:         "reference owner is the caller",
			submitters:   []string{"ref"},
			submitter:    "ref",
			refOwner:     "ref",
			wantStatus:   StatusNew,
			wantIsReal:   true,
			wantUploader: "ref",
		},
		{
			name:         "unset reference owner never matches",
			submitters:   []string{"bob"},
			submitter:    "bob",
			refOwner:     "",
			wantStatus:   StatusFake,
			wantIsReal:   false,
			wantUploader: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, isReal, uploader := deriveVerdict(tt.submitters, tt.submitter, tt.refOwner)
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if isReal != tt.wantIsReal {
				t.Errorf("isReal = %v, want %v", isReal, tt.wantIsReal)
			}
			if uploader != tt.wantUploader {
				t.Errorf("uploader = %q, want %q", uploader, tt.wantUploader)
			}
		})
	}
}
