// Package auth provides account registration, password recovery and
// change, login and session tokens for sensorhub.
//
// Passwords are hashed with bcrypt (cost 10). Session tokens are HS256 JWTs
// carrying the account id and role, valid for one hour and never stored
// server side.
//
// Two behaviours are kept from the system this service replaces and are
// tracked as open product questions: Recover hands back the stored
// password hash, and ChangePassword does not ask for the current password.
package auth
