// Package email sends transactional email through Postmark, or to local
// files in development.
//
// NewSender picks the implementation from Config: with a
// POSTMARK_SERVER_TOKEN it returns a Postmark client, otherwise a DevSender
// that writes an .html body and .json metadata per message into DevDir.
//
//	var cfg email.Config
//	config.MustLoad(&cfg)
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//		return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "lead@example.com",
//		Subject:  "Your meeting is booked",
//		BodyHTML: html,
//		Tag:      "meeting-scheduled",
//	})
//
// Invalid parameters fail with ErrInvalidParams before anything is sent;
// delivery failures wrap ErrFailedToSendEmail.
package email
