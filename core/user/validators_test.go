package user

import (
	"testing"
	"testing/fstest"
)

func TestPasswordPolicy(t *testing.T) {
	const (
		name  = "Johnathan Smith"
		email = "jsmith@school.test"
	)
	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "too short", pwd: "aB1!", want: pwdMinLenTag},
		{name: "too short in runes", pwd: "éèàB1!ç", want: pwdMinLenTag},
		{name: "whitespace", pwd: "aB1! aB1!", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no upper", pwd: "abcd1234!", want: pwdComplexityTag},
		{name: "no special", pwd: "Abcd12345", want: pwdComplexityTag},
		{name: "similar to name", pwd: "JohnathanSmith1!", want: pwdAttrSimTag},
		{name: "similar to email", pwd: "Jsmith@school.1", want: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd", want: pwdNoCommonTag},
		{name: "valid", pwd: "Gr8-Tangerine-Kite", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := passwordPolicyViolation(tt.pwd, name, email); got != tt.want {
				t.Errorf("passwordPolicyViolation(%q) = %q; want %q", tt.pwd, got, tt.want)
			}
		})
	}
}

func TestLoadCommonPasswords(t *testing.T) {
	if len(commonPasswords) == 0 {
		t.Fatal("embedded common passwords were not loaded")
	}
	for i := 1; i < len(commonPasswords); i++ {
		if commonPasswords[i-1] > commonPasswords[i] {
			t.Fatalf("common passwords are not sorted at %d", i)
		}
	}

	if got := loadCommonPasswords(fstest.MapFS{}); len(got) != 0 {
		t.Errorf("missing list should load nothing, got %d", len(got))
	}
	broken := fstest.MapFS{commonPasswordsPath: &fstest.MapFile{Data: []byte("not gzip")}}
	if got := loadCommonPasswords(broken); len(got) != 0 {
		t.Errorf("corrupt list should load nothing, got %d", len(got))
	}
}

func TestUser_Outranks(t *testing.T) {
	district := User{Role: RoleAdminDistrict}
	site := User{Role: RoleAdminSite}
	staff := User{Role: RoleStaff}

	if !district.Outranks(site) || !site.Outranks(staff) {
		t.Error("role priorities are out of order")
	}
	if staff.Outranks(staff) {
		t.Error("a role must not outrank itself")
	}
	if !site.IsAdmin() || staff.IsAdmin() {
		t.Error("IsAdmin() mismatch")
	}
}
