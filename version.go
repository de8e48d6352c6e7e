package seerbot

// Version is the release of the module, printed by "seerbot version".
var Version = "0.1.0"
