package rbac

// RolePermissions is the default policy. Staff ("teacher") author tests and
// read results; only students sit tests.
var RolePermissions = map[string][]string{
	"student": {
		"test:view",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
	},
	"teacher": {
		"test:view",
		"test:create",
		"results:view",
		"attempt:view-own",
	},
	"admin": {
		"*", // everything
	},
}
