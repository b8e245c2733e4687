// Package versioning — сравнение версий нод и проверка совместимости с SDK и приложением.
package versioning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var semverPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z.-]+))?$`)

// Semver — разобранная версия MAJOR.MINOR.PATCH[-prerelease].
type Semver struct {
	Major      int    `json:"major"`
	Minor      int    `json:"minor"`
	Patch      int    `json:"patch"`
	Prerelease string `json:"prerelease,omitempty"`
}

// String возвращает каноническую запись версии.
func (v Semver) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// ParseSemver разбирает строгую запись версии.
// Пробелы по краям игнорируются, префикс "v" не допускается.
func ParseSemver(s string) (Semver, bool) {
	m := semverPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Semver{}, false
	}

	var v Semver
	var err error
	if v.Major, err = strconv.Atoi(m[1]); err != nil {
		return Semver{}, false
	}
	if v.Minor, err = strconv.Atoi(m[2]); err != nil {
		return Semver{}, false
	}
	if v.Patch, err = strconv.Atoi(m[3]); err != nil {
		return Semver{}, false
	}
	v.Prerelease = m[4]
	return v, true
}

// IsSemver проверяет, является ли строка корректной версией.
func IsSemver(s string) bool {
	_, ok := ParseSemver(s)
	return ok
}

// CompareSemver сравнивает две версии и возвращает -1, 0 или 1.
//
// Числовые компоненты сравниваются по порядку. При равенстве версия
// с prerelease меньше версии без него, два prerelease сравниваются
// как строки. Если хотя бы одна строка не является версией, обе
// сравниваются лексикографически.
func CompareSemver(a, b string) int {
	va, okA := ParseSemver(a)
	vb, okB := ParseSemver(b)
	if !okA || !okB {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// Compare сравнивает две разобранные версии.
func (v Semver) Compare(o Semver) int {
	if c := compareInt(v.Major, o.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, o.Patch); c != 0 {
		return c
	}

	switch {
	case v.Prerelease == o.Prerelease:
		return 0
	case v.Prerelease == "":
		return 1
	case o.Prerelease == "":
		return -1
	}
	return strings.Compare(v.Prerelease, o.Prerelease)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// UpgradeType — вид изменения версии.
type UpgradeType string

const (
	UpgradeMajor      UpgradeType = "major"
	UpgradeMinor      UpgradeType = "minor"
	UpgradePatch      UpgradeType = "patch"
	UpgradePrerelease UpgradeType = "prerelease"
	UpgradeNone       UpgradeType = "none"
	UpgradeUnknown    UpgradeType = "unknown"
)

// GetNodeUpgradeType возвращает первый отличающийся компонент версии.
// Если хотя бы одна версия не разбирается — UpgradeUnknown.
func GetNodeUpgradeType(from, to string) UpgradeType {
	a, okA := ParseSemver(from)
	b, okB := ParseSemver(to)
	if !okA || !okB {
		return UpgradeUnknown
	}

	switch {
	case a.Major != b.Major:
		return UpgradeMajor
	case a.Minor != b.Minor:
		return UpgradeMinor
	case a.Patch != b.Patch:
		return UpgradePatch
	case a.Prerelease != b.Prerelease:
		return UpgradePrerelease
	}
	return UpgradeNone
}

// AutoUpgradable сообщает, можно ли обновиться автоматически:
// только patch и minor.
func (t UpgradeType) AutoUpgradable() bool {
	return t == UpgradePatch || t == UpgradeMinor
}

// ShouldAutoUpgrade — AutoUpgradable для пары версий.
func ShouldAutoUpgrade(from, to string) bool {
	return GetNodeUpgradeType(from, to).AutoUpgradable()
}
