// Package gmail reads unread primary-category mail from the Gmail API and
// converts each message into an actions.EmailRecord.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, auth, metrics, logger)
//	if err != nil {
//	    return err
//	}
//	emails, err := client.FetchUnread(ctx, gmail.DefaultLookback, gmail.DefaultMaxEmails)
package gmail
