// Package config resolves Odoo connection profiles.
//
// # Overview
//
// A profile (also called an instance) is a TOML or dotenv file holding the
// credentials for one Odoo server. Profiles live under a project-local
// .vodoo directory or the user's global config directory, and plain
// ODOO_* environment variables override whatever the selected file
// provides.
//
// # Resolution Order
//
// The Loader picks the effective instance name in this order:
//
//  1. An instance named explicitly by the caller
//  2. The VODOO_INSTANCE environment variable
//  3. The project default-instance file (.vodoo/default-instance)
//  4. The global default-instance file
//  5. "default"
//
// For the selected instance, profile files are searched as
// <dir>/instances/<name>.toml then <name>.env, project scope before
// global. When no instance was named explicitly, legacy locations
// (.vodoo.env, .env, and the global config.env) are accepted as a final
// fallback.
//
// # Secrets
//
// A password of the form op://vault/item/field is a secret reference and
// is resolved through the 1Password CLI before the configuration is
// handed to the transport layer.
package config
