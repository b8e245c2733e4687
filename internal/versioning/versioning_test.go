package versioning

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSemver(t *testing.T) {
	tests := []struct {
		input string
		want  Semver
		ok    bool
	}{
		{input: "1.2.3", want: Semver{Major: 1, Minor: 2, Patch: 3}, ok: true},
		{input: " 10.0.1 ", want: Semver{Major: 10, Patch: 1}, ok: true},
		{input: "1.0.0-beta.1", want: Semver{Major: 1, Prerelease: "beta.1"}, ok: true},
		{input: "1.2", ok: false},
		{input: "v1.2.3", ok: false},
		{input: "1.2.3.4", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseSemver(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseSemver(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseSemver(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if IsSemver(tt.input) != tt.ok {
				t.Errorf("IsSemver(%q) disagrees with ParseSemver", tt.input)
			}
		})
	}
}

func TestCompareSemver(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"1.10.0", "1.9.0", 1},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0-alpha", "1.0.0", -1},
		{"1.0.0", "1.0.0-alpha", 1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"abc", "abd", -1},
		{"1.0", "1.0.0", -1},
	}

	for _, tt := range tests {
		if got := CompareSemver(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareSemver(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := CompareSemver(tt.b, tt.a); got != -tt.want {
			t.Errorf("CompareSemver(%q, %q) = %d, want %d (antisymmetry)", tt.b, tt.a, got, -tt.want)
		}
	}
}

func TestCompareSemver_Transitive(t *testing.T) {
	versions := []string{"0.9.0", "1.0.0-alpha", "1.0.0-beta", "1.0.0", "1.0.1", "1.2.0", "2.0.0"}

	for i := 0; i < len(versions); i++ {
		for j := i + 1; j < len(versions); j++ {
			if CompareSemver(versions[i], versions[j]) >= 0 {
				t.Errorf("expected %s < %s", versions[i], versions[j])
			}
		}
	}
}

func TestGetNodeUpgradeType(t *testing.T) {
	tests := []struct {
		from, to string
		want     UpgradeType
		auto     bool
	}{
		{"1.0.0", "2.0.0", UpgradeMajor, false},
		{"1.0.0", "1.1.0", UpgradeMinor, true},
		{"1.0.0", "1.0.1", UpgradePatch, true},
		{"1.0.0-alpha", "1.0.0-beta", UpgradePrerelease, false},
		{"1.0.0", "1.0.0", UpgradeNone, false},
		{"latest", "1.0.0", UpgradeUnknown, false},
	}

	for _, tt := range tests {
		if got := GetNodeUpgradeType(tt.from, tt.to); got != tt.want {
			t.Errorf("GetNodeUpgradeType(%q, %q) = %s, want %s", tt.from, tt.to, got, tt.want)
		}
		if got := ShouldAutoUpgrade(tt.from, tt.to); got != tt.auto {
			t.Errorf("ShouldAutoUpgrade(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.auto)
		}
		if got := tt.want.AutoUpgradable(); got != tt.auto {
			t.Errorf("%s.AutoUpgradable() = %v, want %v", tt.want, got, tt.auto)
		}
	}
}

func TestCheckNodeCompatibility(t *testing.T) {
	tests := []struct {
		name       string
		bounds     Bounds
		ctx        Context
		compatible bool
		severities []string
		types      []string
	}{
		{
			name:       "no bounds",
			ctx:        Context{SDKVersion: "1.0.0"},
			compatible: true,
		},
		{
			name:       "within bounds",
			bounds:     Bounds{MinSDKVersion: "1.0.0", MaxSDKVersion: "2.0.0"},
			ctx:        Context{SDKVersion: "1.5.0"},
			compatible: true,
		},
		{
			name:       "below minimum",
			bounds:     Bounds{MinSDKVersion: "2.0.0"},
			ctx:        Context{SDKVersion: "1.0.0"},
			compatible: false,
			severities: []string{SeverityError},
			types:      []string{IssueTypeSDK},
		},
		{
			name:       "above maximum app",
			bounds:     Bounds{MaxAppVersion: "3.0.0"},
			ctx:        Context{AppVersion: "3.1.0"},
			compatible: false,
			severities: []string{SeverityError},
			types:      []string{IssueTypeApp},
		},
		{
			name:       "unknown context version warns",
			bounds:     Bounds{MinSDKVersion: "1.0.0"},
			compatible: true,
			severities: []string{SeverityWarning},
			types:      []string{IssueTypeSDK},
		},
		{
			name:       "warning and error",
			bounds:     Bounds{MinSDKVersion: "2.0.0", MinAppVersion: "1.0.0"},
			ctx:        Context{SDKVersion: "1.0.0"},
			compatible: false,
			severities: []string{SeverityError, SeverityWarning},
			types:      []string{IssueTypeSDK, IssueTypeApp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckNodeCompatibility(tt.bounds, tt.ctx)
			if got.Compatible != tt.compatible {
				t.Errorf("expected compatible=%v, got %+v", tt.compatible, got)
			}

			var severities, types []string
			for _, issue := range got.Issues {
				severities = append(severities, issue.Severity)
				types = append(types, issue.Type)
			}
			if diff := cmp.Diff(tt.severities, severities); diff != "" {
				t.Errorf("severities mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.types, types); diff != "" {
				t.Errorf("issue types mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
