package utils

import (
	"fmt"
	"log"

	"skillswap_back_end/internal/models"
)

// SendSwapRequestEmail prévient le destinataire qu'une demande d'échange
// l'attend
func SendSwapRequestEmail(recipientEmail, requesterName string, swap *models.SwapRequest) error {
	subject := "🤝 Nouvelle demande d'échange - SkillSwap"
	html := generateSwapEmailHTML(
		"🤝 Nouvelle demande d'échange",
		fmt.Sprintf("%s vous propose un échange : <strong>%s</strong> contre <strong>%s</strong>.",
			requesterName, swap.SkillOffered.Name, swap.SkillRequested.Name),
		swap.Message,
	)

	if err := SendEmail(recipientEmail, subject, html); err != nil {
		log.Printf("❌ Erreur envoi email demande: %v", err)
		return err
	}

	log.Printf("📧 Email de demande envoyé → %s", recipientEmail)
	return nil
}

// SendSwapStatusEmail prévient l'autre participant d'un changement de statut
func SendSwapStatusEmail(userEmail string, swap *models.SwapRequest, newStatus models.SwapStatus) error {
	subject := getSwapEmailSubject(newStatus)
	html := generateSwapEmailHTML(
		subject,
		getSwapStatusMessage(newStatus),
		fmt.Sprintf("Échange : %s contre %s", swap.SkillOffered.Name, swap.SkillRequested.Name),
	)

	if err := SendEmail(userEmail, subject, html); err != nil {
		log.Printf("❌ Erreur envoi email statut: %v", err)
		return err
	}

	log.Printf("📧 Email de statut envoyé: %s → %s", newStatus, userEmail)
	return nil
}

func getSwapEmailSubject(status models.SwapStatus) string {
	switch status {
	case models.SwapAccepted:
		return "✅ Demande d'échange acceptée - SkillSwap"
	case models.SwapRejected:
		return "❌ Demande d'échange refusée - SkillSwap"
	case models.SwapCancelled:
		return "🚫 Demande d'échange annulée - SkillSwap"
	case models.SwapCompleted:
		return "🎉 Échange terminé - SkillSwap"
	default:
		return "📋 Mise à jour de votre échange - SkillSwap"
	}
}

func getSwapStatusMessage(status models.SwapStatus) string {
	switch status {
	case models.SwapAccepted:
		return "Bonne nouvelle ! Votre demande d'échange a été acceptée. Vous pouvez maintenant convenir des détails ensemble."
	case models.SwapRejected:
		return "Votre demande d'échange a été refusée. Vous pouvez proposer un autre échange quand vous voulez."
	case models.SwapCancelled:
		return "La demande d'échange a été annulée par son auteur."
	case models.SwapCompleted:
		return "L'échange a été marqué comme terminé. Pensez à laisser un retour à votre partenaire !"
	default:
		return "Le statut de votre échange a été mis à jour."
	}
}

func generateSwapEmailHTML(title, message, detail string) string {
	detailHTML := ""
	if detail != "" {
		detailHTML = fmt.Sprintf(`
            <div class="info-box">
                <p>%s</p>
            </div>`, detail)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .info-box { background: white; padding: 20px; border-radius: 8px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>%s</h1>
        </div>
        <div class="content">
            <p>%s</p>
            %s
            <p style="margin-top: 30px; color: #555;">
                Cordialement,<br>
                <strong>L'équipe SkillSwap</strong>
            </p>
        </div>
    </div>
</body>
</html>
`, title, message, detailHTML)
}
