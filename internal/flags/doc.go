// Package flags manages the command-line flags and DOCKUPDATE_* environment variables of dockupdate.
//
// Flags are registered on the root command's persistent flag set with their defaults read
// from the environment through Viper, so every flag can also be set as an environment
// variable. SetDefaults must run before registration.
//
// Usage example:
//
//	cmd := &cobra.Command{}
//	flags.SetDefaults()
//	flags.RegisterEngineFlags(cmd)
//	flags.RegisterSystemFlags(cmd)
//	if err := flags.SetupLogging(cmd.PersistentFlags()); err != nil {
//	    logrus.WithError(err).Fatal("Logging setup failed")
//	}
package flags
